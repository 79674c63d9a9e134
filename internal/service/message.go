package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ViksyAsenov/poly-talk/internal/bus"
	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
	"github.com/ViksyAsenov/poly-talk/internal/model"
	"github.com/ViksyAsenov/poly-talk/pkg/snowflake"
)

// MessageService 消息业务
type MessageService struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserDirectory
	translations  TranslationGateway
	router        DeliveryRouter
	node          *snowflake.Node
	pageSize      int
	logger        *slog.Logger
}

// NewMessageService 创建消息业务
func NewMessageService(
	conversations ConversationStore,
	messages MessageStore,
	users UserDirectory,
	translations TranslationGateway,
	router DeliveryRouter,
	node *snowflake.Node,
	pageSize int,
	logger *slog.Logger,
) *MessageService {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		translations:  translations,
		router:        router,
		node:          node,
		pageSize:      pageSize,
		logger:        logger,
	}
}

// Send 发送消息并向每个参与者按其语言推送
func (s *MessageService) Send(ctx context.Context, senderID, conversationID int64, content string) (*model.MessageData, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.ErrInvalidMessageData
	}
	p, err := s.conversations.GetParticipant(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.ErrNotParticipant
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperrors.ErrConversationNotFound
	}
	sender, err := s.users.GetMinimalProfile(ctx, senderID)
	if err != nil {
		return nil, err
	}
	participants, err := s.conversations.GetParticipants(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	// 私聊发消息时复查好友关系，解除好友后会话即只读
	if !conv.IsGroup {
		for _, other := range participants {
			if other.UserID == senderID {
				continue
			}
			friends, err := s.users.AreFriends(ctx, senderID, other.UserID)
			if err != nil {
				return nil, err
			}
			if !friends {
				return nil, apperrors.ErrNotFriends
			}
		}
	}

	msg := &model.Message{
		ID:                 s.node.Generate().Int64(),
		ConversationID:     conversationID,
		SenderID:           senderID,
		Content:            content,
		OriginalLanguageID: sender.LanguageID,
	}
	if err = s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	senderView := &model.MessageData{
		ID:             msg.ID,
		Sender:         *sender,
		Content:        msg.Content,
		DisplayContent: msg.Content,
		ConversationID: conversationID,
		CreatedAt:      msg.CreatedAt,
	}

	// 逐个参与者生成其语言下的视图并单播
	for _, member := range participants {
		if member.UserID == senderID {
			s.router.PushToUser(member.UserID, bus.EventMessageNew, senderView)
			continue
		}
		recipient, err := s.users.GetMinimalProfile(ctx, member.UserID)
		if err != nil {
			s.logger.Error("Skipping delivery for unknown participant", "userId", member.UserID, "messageId", msg.ID, "error", err)
			continue
		}
		s.router.PushToUser(member.UserID, bus.EventMessageNew, s.viewFor(ctx, msg, sender, recipient))
	}
	return senderView, nil
}

// History 按页返回消息，老到新排列，每条按查看者语言翻译
func (s *MessageService) History(ctx context.Context, viewerID, conversationID int64, before time.Time) ([]model.MessageData, error) {
	p, err := s.conversations.GetParticipant(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.ErrNotParticipant
	}
	viewer, err := s.users.GetMinimalProfile(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if before.IsZero() {
		before = time.Now()
	}
	messages, err := s.messages.ListByConversation(ctx, conversationID, before, s.pageSize)
	if err != nil {
		return nil, err
	}

	result := make([]model.MessageData, 0, len(messages))
	senders := make(map[int64]*model.MinimalUser)
	for i := range messages {
		msg := &messages[i]
		sender, ok := senders[msg.SenderID]
		if !ok {
			sender, err = s.users.GetMinimalProfile(ctx, msg.SenderID)
			if err != nil {
				return nil, err
			}
			senders[msg.SenderID] = sender
		}
		result = append(result, *s.viewFor(ctx, msg, sender, viewer))
	}
	return result, nil
}

// Delete 删除消息，发送者本人或群管理员可操作
// 发送者删自己的消息不要求仍在会话中，已退群也能清理自己的发言
func (s *MessageService) Delete(ctx context.Context, viewerID, messageID int64) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.ErrMessageNotFound
	}
	if msg.SenderID != viewerID {
		p, err := s.conversations.GetParticipant(ctx, viewerID, msg.ConversationID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperrors.ErrNotParticipant
		}
		if !p.IsAdmin {
			return apperrors.ErrNotAdmin
		}
	}
	if err = s.messages.Delete(ctx, messageID); err != nil {
		return err
	}
	s.router.PushToRoom(msg.ConversationID, bus.EventMessageDeleted, map[string]any{
		"message_id":      messageID,
		"conversation_id": msg.ConversationID,
	})
	return nil
}

// viewFor 生成查看者语言下的消息视图
// 自己发的、查看者无首选语言、或与原文同语言时直接用原文
func (s *MessageService) viewFor(ctx context.Context, msg *model.Message, sender, viewer *model.MinimalUser) *model.MessageData {
	data := &model.MessageData{
		ID:             msg.ID,
		Sender:         *sender,
		Content:        msg.Content,
		DisplayContent: msg.Content,
		ConversationID: msg.ConversationID,
		CreatedAt:      msg.CreatedAt,
	}
	if viewer.ID == msg.SenderID || viewer.LanguageID == nil {
		return data
	}
	if msg.OriginalLanguageID != nil && *msg.OriginalLanguageID == *viewer.LanguageID {
		return data
	}
	result := s.translations.Resolve(ctx, msg, *viewer.LanguageID)
	data.DisplayContent = result.Content
	data.IsTranslated = result.Translated
	return data
}
