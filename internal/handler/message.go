package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ViksyAsenov/poly-talk/internal/middleware"
	"github.com/ViksyAsenov/poly-talk/internal/service"
	"github.com/ViksyAsenov/poly-talk/pkg/response"
)

// MessageHandler 消息处理器
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// SendRequest 发送消息请求
type SendRequest struct {
	ConversationID int64  `json:"conversation_id" binding:"required"`
	Content        string `json:"content" binding:"required"`
}

// Send 发送消息
// POST /api/v1/messages
func (h *MessageHandler) Send(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	data, err := h.messages.Send(c.Request.Context(), userID, req.ConversationID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// History 按页读取消息
// GET /api/v1/conversations/:id/messages?before=RFC3339
func (h *MessageHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.BadRequest(c, "invalid before timestamp")
			return
		}
		before = parsed
	}

	list, err := h.messages.History(c.Request.Context(), userID, conversationID, before)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// Delete 删除消息
// DELETE /api/v1/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.messages.Delete(c.Request.Context(), userID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
