package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims JWT 声明
// 传输层只需要解析出已认证的用户 ID
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Service JWT 服务
type Service struct {
	secretKey    []byte
	accessExpire time.Duration
}

// NewService 创建 JWT 服务
func NewService(secretKey string, accessExpire time.Duration) *Service {
	return &Service{
		secretKey:    []byte(secretKey),
		accessExpire: accessExpire,
	}
}

// GenerateAccessToken 生成 Access Token
func (s *Service) GenerateAccessToken(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "poly-talk",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateAccessToken 验证 Access Token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
