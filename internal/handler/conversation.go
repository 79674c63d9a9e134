package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ViksyAsenov/poly-talk/internal/middleware"
	"github.com/ViksyAsenov/poly-talk/internal/service"
	"github.com/ViksyAsenov/poly-talk/pkg/response"
)

// ConversationHandler 会话处理器
type ConversationHandler struct {
	conversations *service.ConversationService
}

// NewConversationHandler 创建会话处理器
func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// CreateDirectRequest 创建私聊请求
type CreateDirectRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// CreateDirect 创建或复用私聊
// POST /api/v1/conversations/direct
func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req CreateDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	data, err := h.conversations.CreateDirect(c.Request.Context(), userID, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// CreateGroupRequest 创建群聊请求
type CreateGroupRequest struct {
	Name           string  `json:"name" binding:"required"`
	ParticipantIDs []int64 `json:"participant_ids" binding:"required"`
}

// CreateGroup 创建群聊
// POST /api/v1/conversations/group
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	data, err := h.conversations.CreateGroup(c.Request.Context(), userID, req.Name, req.ParticipantIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// List 列出当前用户的全部会话
// GET /api/v1/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	list, err := h.conversations.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// Get 查询会话详情
// GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	data, err := h.conversations.GetDetails(c.Request.Context(), userID, conversationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// RenameRequest 重命名请求
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// Rename 重命名群聊
// PATCH /api/v1/conversations/:id/name
func (h *ConversationHandler) Rename(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	data, err := h.conversations.Rename(c.Request.Context(), userID, conversationID, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// ParticipantRequest 参与者操作请求
type ParticipantRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// AddParticipant 拉人进群
// POST /api/v1/conversations/:id/participants
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	data, err := h.conversations.AddParticipant(c.Request.Context(), userID, conversationID, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// RemoveParticipant 移出群成员
// DELETE /api/v1/conversations/:id/participants/:userId
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	data, err := h.conversations.RemoveParticipant(c.Request.Context(), userID, conversationID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// SetAdminRequest 管理员变更请求
type SetAdminRequest struct {
	UserID  int64 `json:"user_id" binding:"required"`
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

// SetAdmin 授予或撤销管理员
// PATCH /api/v1/conversations/:id/admins
func (h *ConversationHandler) SetAdmin(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SetAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	data, err := h.conversations.SetAdmin(c.Request.Context(), userID, conversationID, req.UserID, *req.IsAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

// Leave 退出群聊
// POST /api/v1/conversations/:id/leave
func (h *ConversationHandler) Leave(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.conversations.Leave(c.Request.Context(), userID, conversationID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Delete 解散群聊
// DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.conversations.DeleteGroup(c.Request.Context(), userID, conversationID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// pathID 解析路径参数中的数字 ID
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
