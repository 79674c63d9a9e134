package service

import (
	"context"
	"time"

	"github.com/ViksyAsenov/poly-talk/internal/model"
	"github.com/ViksyAsenov/poly-talk/internal/translate"
)

// ConversationStore 会话存储
type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	Rename(ctx context.Context, id int64, name string) error
	GetParticipants(ctx context.Context, conversationID int64) ([]model.Participant, error)
	GetParticipant(ctx context.Context, userID, conversationID int64) (*model.Participant, error)
	AddParticipant(ctx context.Context, p *model.Participant) error
	RemoveParticipant(ctx context.Context, userID, conversationID int64) error
	SetParticipantAdmin(ctx context.Context, userID, conversationID int64, isAdmin bool) error
	ListIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	Delete(ctx context.Context, conversationID int64) error
}

// MessageStore 消息存储
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID int64, before time.Time, limit int) ([]model.Message, error)
	LatestInConversation(ctx context.Context, conversationID int64) (*model.Message, error)
	Delete(ctx context.Context, id int64) error
}

// UserDirectory 用户服务边界
type UserDirectory interface {
	GetMinimalProfile(ctx context.Context, userID int64) (*model.MinimalUser, error)
	AreFriends(ctx context.Context, userID, otherID int64) (bool, error)
}

// TranslationGateway 翻译缓存网关边界
type TranslationGateway interface {
	Resolve(ctx context.Context, msg *model.Message, targetLanguageID int64) translate.Result
	Cached(ctx context.Context, messageID, targetLanguageID int64) (*model.Translation, error)
}

// DeliveryRouter 投递路由边界
type DeliveryRouter interface {
	PushToUser(userID int64, event string, payload any)
	PushToRoom(conversationID int64, event string, payload any)
}
