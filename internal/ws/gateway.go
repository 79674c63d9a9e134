package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ViksyAsenov/poly-talk/internal/presence"
	"github.com/ViksyAsenov/poly-talk/internal/workerpool"
	"github.com/ViksyAsenov/poly-talk/pkg/jwt"
)

// Gateway WebSocket 接入层
// 认证走 query token，升级成功后由 presence.Router 接管会话生命周期
type Gateway struct {
	upgrader websocket.Upgrader
	tokens   *jwt.Service
	router   *presence.Router
	pool     *workerpool.Pool
	logger   *slog.Logger
}

// NewGateway 创建接入层，升级请求按 HTTP 层同一份 origin 白名单校验
func NewGateway(tokens *jwt.Service, router *presence.Router, pool *workerpool.Pool, allowedOrigins []string, logger *slog.Logger) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		tokens: tokens,
		router: router,
		pool:   pool,
		logger: logger,
	}
}

// originChecker 与 CORS 中间件同规则："*" 放行全部，否则精确匹配
// 非浏览器客户端不带 Origin 头，直接放行
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Handle 处理 /ws 升级请求
func (g *Gateway) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	claims, err := g.tokens.ValidateAccessToken(token)
	if err != nil {
		g.logger.Warn("WebSocket auth failed", "error", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Error("WebSocket upgrade failed", "userId", claims.UserID, "error", err)
		return
	}

	client := NewClient(uuid.NewString(), claims.UserID, conn, g.router, g.pool, g.logger)
	// 连接升级后挂起的是长连接，生命周期与请求上下文解耦
	ctx := context.Background()
	g.router.OnConnect(ctx, client)

	go client.writePump()
	go client.readPump(ctx)
}
