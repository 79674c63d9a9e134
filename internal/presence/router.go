package presence

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ViksyAsenov/poly-talk/internal/bus"
	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
)

// Publisher 推送事件发布
type Publisher interface {
	PushToUser(userID int64, event string, payload any)
	PushToRoom(conversationID int64, event string, payload any)
	Broadcast(event string, payload any)
}

// Registry 跨节点在线注册表
type Registry interface {
	AddSession(ctx context.Context, userID int64) (int64, error)
	RemoveSession(ctx context.Context, userID int64) (int64, error)
	OnlineCount(ctx context.Context) (int64, error)
}

// ParticipantChecker 参与者校验
// 加入房间时实时校验，不缓存，防止被移出后继续订阅
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, userID, conversationID int64) (bool, error)
}

// ParticipantCheckerFunc 函数适配器
type ParticipantCheckerFunc func(ctx context.Context, userID, conversationID int64) (bool, error)

func (f ParticipantCheckerFunc) IsParticipant(ctx context.Context, userID, conversationID int64) (bool, error) {
	return f(ctx, userID, conversationID)
}

// Router 在线状态与投递路由
// 推送先经 NATS 发布，再由各节点的订阅器交回 Deliver* 写入本地会话
type Router struct {
	manager      *Manager
	registry     Registry
	publisher    Publisher
	participants ParticipantChecker
	logger       *slog.Logger
}

// NewRouter 创建投递路由
func NewRouter(manager *Manager, registry Registry, publisher Publisher, participants ParticipantChecker) *Router {
	return &Router{
		manager:      manager,
		registry:     registry,
		publisher:    publisher,
		participants: participants,
		logger:       slog.Default(),
	}
}

// OnConnect 注册会话；用户首个会话上线时广播在线人数
func (r *Router) OnConnect(ctx context.Context, s Session) {
	r.manager.Add(s)

	count, err := r.registry.AddSession(ctx, s.UserID())
	if err != nil {
		r.logger.Error("Failed to register session in online registry", "userId", s.UserID(), "error", err)
		return
	}

	r.logger.Debug("Session connected", "userId", s.UserID(), "sessionId", s.ID(), "userSessions", count)

	if count == 1 {
		r.broadcastOnlineCount(ctx)
	}
}

// OnDisconnect 注销会话；用户最后一个会话下线时广播在线人数
func (r *Router) OnDisconnect(ctx context.Context, sessionID string) {
	s := r.manager.Get(sessionID)
	if s == nil {
		return
	}

	r.manager.Remove(sessionID)

	count, err := r.registry.RemoveSession(ctx, s.UserID())
	if err != nil {
		r.logger.Error("Failed to unregister session in online registry", "userId", s.UserID(), "error", err)
		return
	}

	r.logger.Debug("Session disconnected", "userId", s.UserID(), "sessionId", sessionID, "userSessions", count)

	if count == 0 {
		r.broadcastOnlineCount(ctx)
	}
}

// JoinRoom 会话加入会话房间，加入时实时校验参与者身份
func (r *Router) JoinRoom(ctx context.Context, sessionID string, conversationID int64) error {
	s := r.manager.Get(sessionID)
	if s == nil {
		return apperrors.ErrUnexpected
	}

	ok, err := r.participants.IsParticipant(ctx, s.UserID(), conversationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotParticipant
	}

	r.manager.JoinRoom(sessionID, conversationID)
	r.logger.Info("Session joined room", "userId", s.UserID(), "conversationId", conversationID)
	return nil
}

// LeaveRoom 会话退出会话房间
func (r *Router) LeaveRoom(sessionID string, conversationID int64) {
	r.manager.LeaveRoom(sessionID, conversationID)
}

// PushToUser 向某用户的全部活跃会话推送事件
// 用户无活跃会话时静默丢弃，消息本身已持久化
func (r *Router) PushToUser(userID int64, event string, payload any) {
	r.publisher.PushToUser(userID, event, payload)
}

// PushToRoom 向订阅了该会话房间的全部会话推送事件
func (r *Router) PushToRoom(conversationID int64, event string, payload any) {
	r.publisher.PushToRoom(conversationID, event, payload)
}

// broadcastOnlineCount 广播当前在线用户数
func (r *Router) broadcastOnlineCount(ctx context.Context) {
	count, err := r.registry.OnlineCount(ctx)
	if err != nil {
		r.logger.Error("Failed to read online count", "error", err)
		return
	}
	r.publisher.Broadcast(bus.EventOnlineCount, count)
}

// DeliverToUser 本地投递：写入该用户在本节点的全部会话
func (r *Router) DeliverToUser(userID int64, event string, data json.RawMessage) {
	for _, s := range r.manager.GetByUserID(userID) {
		s.Send(event, data)
	}
}

// DeliverToRoom 本地投递：写入订阅了该房间的本节点会话
func (r *Router) DeliverToRoom(conversationID int64, event string, data json.RawMessage) {
	for _, s := range r.manager.GetRoom(conversationID) {
		s.Send(event, data)
	}
}

// DeliverBroadcast 本地投递：写入本节点全部会话
func (r *Router) DeliverBroadcast(event string, data json.RawMessage) {
	for _, s := range r.manager.All() {
		s.Send(event, data)
	}
}
