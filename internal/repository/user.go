package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
	"github.com/ViksyAsenov/poly-talk/internal/model"
)

// UserRepository 用户数据访问
// 用户和好友关系由用户服务维护，消息引擎只读
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// GetMinimalProfile 获取用户概要
func (r *UserRepository) GetMinimalProfile(ctx context.Context, userID int64) (*model.MinimalUser, error) {
	query := `SELECT id, display_name, avatar, tag, language_id FROM users WHERE id = $1`

	var user model.MinimalUser
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Avatar,
		&user.Tag,
		&user.LanguageID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// AreFriends 检查两个用户是否为好友（不区分方向）
func (r *UserRepository) AreFriends(ctx context.Context, userID, otherID int64) (bool, error) {
	query := `
		SELECT 1 FROM friends
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
		LIMIT 1
	`

	var exists int
	err := r.db.QueryRow(ctx, query, userID, otherID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
