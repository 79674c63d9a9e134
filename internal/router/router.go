package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ViksyAsenov/poly-talk/internal/config"
	"github.com/ViksyAsenov/poly-talk/internal/handler"
	"github.com/ViksyAsenov/poly-talk/internal/middleware"
	"github.com/ViksyAsenov/poly-talk/internal/ws"
	"github.com/ViksyAsenov/poly-talk/pkg/jwt"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	jwtService *jwt.Service,
	conversationHandler *handler.ConversationHandler,
	messageHandler *handler.MessageHandler,
	gateway *ws.Gateway,
) *gin.Engine {
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))

	// WebSocket 接入（token 在 query 里，自行认证）
	r.GET("/ws", gateway.Handle)

	// API v1，全部需要认证
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtService))
	{
		conversations := v1.Group("/conversations")
		{
			conversations.POST("/direct", conversationHandler.CreateDirect)
			conversations.POST("/group", conversationHandler.CreateGroup)
			conversations.GET("", conversationHandler.List)
			conversations.GET("/:id", conversationHandler.Get)
			conversations.PATCH("/:id/name", conversationHandler.Rename)
			conversations.POST("/:id/participants", conversationHandler.AddParticipant)
			conversations.DELETE("/:id/participants/:userId", conversationHandler.RemoveParticipant)
			conversations.PATCH("/:id/admins", conversationHandler.SetAdmin)
			conversations.POST("/:id/leave", conversationHandler.Leave)
			conversations.DELETE("/:id", conversationHandler.Delete)
			conversations.GET("/:id/messages", messageHandler.History)
		}

		messages := v1.Group("/messages")
		{
			messages.POST("", messageHandler.Send)
			messages.DELETE("/:id", messageHandler.Delete)
		}
	}

	return r
}
