package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/ViksyAsenov/poly-talk/internal/bus"
	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
	"github.com/ViksyAsenov/poly-talk/internal/model"
	"github.com/ViksyAsenov/poly-talk/pkg/snowflake"
)

// ConversationService 会话业务
type ConversationService struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserDirectory
	translations  TranslationGateway
	router        DeliveryRouter
	node          *snowflake.Node
	logger        *slog.Logger
}

// NewConversationService 创建会话业务
func NewConversationService(
	conversations ConversationStore,
	messages MessageStore,
	users UserDirectory,
	translations TranslationGateway,
	router DeliveryRouter,
	node *snowflake.Node,
	logger *slog.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		translations:  translations,
		router:        router,
		node:          node,
		logger:        logger,
	}
}

// CreateDirect 创建或复用两人私聊会话
func (s *ConversationService) CreateDirect(ctx context.Context, userID, otherUserID int64) (*model.ConversationData, error) {
	friends, err := s.users.AreFriends(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, apperrors.ErrNotFriends
	}
	if userID == otherUserID {
		return nil, apperrors.ErrSelfConversation
	}
	viewer, err := s.users.GetMinimalProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err = s.users.GetMinimalProfile(ctx, otherUserID); err != nil {
		return nil, err
	}

	// 已有私聊直接复用
	existing, err := s.findDirect(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.buildDetails(ctx, viewer, existing)
	}

	conv := &model.Conversation{
		ID:      s.node.Generate().Int64(),
		IsGroup: false,
	}
	if err = s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	for _, memberID := range []int64{userID, otherUserID} {
		p := &model.Participant{
			ID:             s.node.Generate().Int64(),
			UserID:         memberID,
			ConversationID: conv.ID,
		}
		if err = s.conversations.AddParticipant(ctx, p); err != nil {
			return nil, err
		}
	}
	return s.buildDetails(ctx, viewer, conv)
}

func (s *ConversationService) findDirect(ctx context.Context, userID, otherUserID int64) (*model.Conversation, error) {
	ids, err := s.conversations.ListIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		conv, err := s.conversations.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv == nil || conv.IsGroup {
			continue
		}
		participants, err := s.conversations.GetParticipants(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(participants) != 2 {
			continue
		}
		for _, p := range participants {
			if p.UserID == otherUserID {
				return conv, nil
			}
		}
	}
	return nil, nil
}

// CreateGroup 创建群聊，owner 自动成为管理员
func (s *ConversationService) CreateGroup(ctx context.Context, ownerID int64, name string, memberIDs []int64) (*model.ConversationData, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(memberIDs) < 2 {
		return nil, apperrors.ErrInvalidGroupData
	}
	seen := make(map[int64]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok || id == ownerID {
			return nil, apperrors.ErrDuplicateParticipants
		}
		seen[id] = struct{}{}
	}
	owner, err := s.users.GetMinimalProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		ID:        s.node.Generate().Int64(),
		Name:      &name,
		IsGroup:   true,
		CreatedBy: &ownerID,
	}
	if err = s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	if err = s.conversations.AddParticipant(ctx, &model.Participant{
		ID:             s.node.Generate().Int64(),
		UserID:         ownerID,
		ConversationID: conv.ID,
		IsAdmin:        true,
	}); err != nil {
		return nil, err
	}
	for _, memberID := range memberIDs {
		friends, err := s.users.AreFriends(ctx, ownerID, memberID)
		if err != nil {
			return nil, err
		}
		if !friends {
			return nil, apperrors.ErrNotFriends
		}
		if _, err = s.users.GetMinimalProfile(ctx, memberID); err != nil {
			return nil, err
		}
		if err = s.conversations.AddParticipant(ctx, &model.Participant{
			ID:             s.node.Generate().Int64(),
			UserID:         memberID,
			ConversationID: conv.ID,
		}); err != nil {
			return nil, err
		}
	}
	return s.buildDetails(ctx, owner, conv)
}

// GetDetails 查询会话详情，要求 viewer 在会话中
func (s *ConversationService) GetDetails(ctx context.Context, viewerID, conversationID int64) (*model.ConversationData, error) {
	viewer, err := s.users.GetMinimalProfile(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	p, err := s.conversations.GetParticipant(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.ErrNotParticipant
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return s.buildDetails(ctx, viewer, conv)
}

// ListForUser 列出用户全部会话，按最近活跃倒序
func (s *ConversationService) ListForUser(ctx context.Context, userID int64) ([]model.ConversationData, error) {
	viewer, err := s.users.GetMinimalProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids, err := s.conversations.ListIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := make([]model.ConversationData, 0, len(ids))
	for _, id := range ids {
		conv, err := s.conversations.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			continue
		}
		data, err := s.buildDetails(ctx, viewer, conv)
		if err != nil {
			return nil, err
		}
		result = append(result, *data)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result, nil
}

// Rename 重命名群聊，要求管理员
func (s *ConversationService) Rename(ctx context.Context, viewerID, conversationID int64, name string) (*model.ConversationData, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrInvalidGroupData
	}
	if _, err := s.guardGroupAdmin(ctx, viewerID, conversationID); err != nil {
		return nil, err
	}
	if err := s.conversations.Rename(ctx, conversationID, name); err != nil {
		return nil, err
	}
	details, err := s.GetDetails(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	s.router.PushToRoom(conversationID, bus.EventConversationUpdated, details)
	return details, nil
}

// AddParticipant 拉人进群，要求管理员且与被拉人是好友
func (s *ConversationService) AddParticipant(ctx context.Context, viewerID, conversationID, targetID int64) (*model.ConversationData, error) {
	if _, err := s.guardGroupAdmin(ctx, viewerID, conversationID); err != nil {
		return nil, err
	}
	existing, err := s.conversations.GetParticipant(ctx, targetID, conversationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// 重复拉人按幂等处理
		return s.GetDetails(ctx, viewerID, conversationID)
	}
	friends, err := s.users.AreFriends(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, apperrors.ErrNotFriends
	}
	if _, err = s.users.GetMinimalProfile(ctx, targetID); err != nil {
		return nil, err
	}
	if err = s.conversations.AddParticipant(ctx, &model.Participant{
		ID:             s.node.Generate().Int64(),
		UserID:         targetID,
		ConversationID: conversationID,
	}); err != nil {
		return nil, err
	}
	details, err := s.GetDetails(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	s.router.PushToRoom(conversationID, bus.EventConversationUpdated, details)
	s.router.PushToUser(targetID, bus.EventConversationUpdated, details)
	return details, nil
}

// RemoveParticipant 移出群成员；成员可自行退出，移除他人要求管理员
func (s *ConversationService) RemoveParticipant(ctx context.Context, viewerID, conversationID, targetID int64) (*model.ConversationData, error) {
	p, err := s.conversations.GetParticipant(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if viewerID != targetID && !p.IsAdmin {
		return nil, apperrors.ErrNotAdmin
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, apperrors.ErrNotGroup
	}
	// 群主只能解散群，不能退出或被移除
	if conv.CreatedBy != nil && *conv.CreatedBy == targetID {
		return nil, apperrors.ErrNotOwner
	}
	if err = s.conversations.RemoveParticipant(ctx, targetID, conversationID); err != nil {
		return nil, err
	}
	notice := map[string]any{"conversation_id": conversationID}
	s.router.PushToRoom(conversationID, bus.EventConversationUpdated, notice)
	s.router.PushToUser(targetID, bus.EventConversationUpdated, notice)
	if viewerID == targetID {
		return nil, nil
	}
	return s.GetDetails(ctx, viewerID, conversationID)
}

// Leave 自行退出群聊
func (s *ConversationService) Leave(ctx context.Context, userID, conversationID int64) error {
	_, err := s.RemoveParticipant(ctx, userID, conversationID, userID)
	return err
}

// SetAdmin 授予或撤销管理员，要求操作者是管理员
func (s *ConversationService) SetAdmin(ctx context.Context, viewerID, conversationID, targetID int64, isAdmin bool) (*model.ConversationData, error) {
	conv, err := s.guardGroupAdmin(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	// 群主的管理员身份不可变更
	if conv.CreatedBy != nil && *conv.CreatedBy == targetID {
		return nil, apperrors.ErrNotOwner
	}
	target, err := s.conversations.GetParticipant(ctx, targetID, conversationID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if err = s.conversations.SetParticipantAdmin(ctx, targetID, conversationID, isAdmin); err != nil {
		return nil, err
	}
	details, err := s.GetDetails(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	s.router.PushToRoom(conversationID, bus.EventConversationUpdated, details)
	return details, nil
}

// DeleteGroup 解散群聊，仅群主可操作，消息和翻译级联删除
func (s *ConversationService) DeleteGroup(ctx context.Context, viewerID, conversationID int64) error {
	p, err := s.conversations.GetParticipant(ctx, viewerID, conversationID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperrors.ErrNotParticipant
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return apperrors.ErrNotGroup
	}
	if conv.CreatedBy == nil || *conv.CreatedBy != viewerID {
		return apperrors.ErrNotOwner
	}
	if err = s.conversations.Delete(ctx, conversationID); err != nil {
		return err
	}
	s.router.PushToRoom(conversationID, bus.EventConversationDeleted, map[string]any{"conversation_id": conversationID})
	s.logger.Info("group conversation deleted", "conversation_id", conversationID, "owner_id", viewerID)
	return nil
}

// IsParticipant 供网关房间订阅鉴权使用
func (s *ConversationService) IsParticipant(ctx context.Context, userID, conversationID int64) (bool, error) {
	p, err := s.conversations.GetParticipant(ctx, userID, conversationID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

func (s *ConversationService) getConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperrors.ErrConversationNotFound
	}
	return conv, nil
}

func (s *ConversationService) guardGroupAdmin(ctx context.Context, viewerID, conversationID int64) (*model.Conversation, error) {
	p, err := s.conversations.GetParticipant(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.ErrNotParticipant
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, apperrors.ErrNotGroup
	}
	if !p.IsAdmin {
		return nil, apperrors.ErrNotAdmin
	}
	return conv, nil
}

func (s *ConversationService) buildDetails(ctx context.Context, viewer *model.MinimalUser, conv *model.Conversation) (*model.ConversationData, error) {
	participants, err := s.conversations.GetParticipants(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	enriched := make([]model.ParticipantData, 0, len(participants))
	for _, p := range participants {
		profile, err := s.users.GetMinimalProfile(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		enriched = append(enriched, model.ParticipantData{
			ID:             p.ID,
			User:           *profile,
			ConversationID: p.ConversationID,
			IsAdmin:        p.IsAdmin,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		})
	}

	latest, err := s.messages.LatestInConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	data := &model.ConversationData{
		Conversation: *conv,
		Participants: enriched,
		LastActivity: conv.CreatedAt,
	}
	if latest != nil {
		data.LastActivity = latest.CreatedAt
		preview := latest.Content
		// 预览只读缓存，不触发按需翻译
		if viewer.LanguageID != nil {
			cached, err := s.translations.Cached(ctx, latest.ID, *viewer.LanguageID)
			if err != nil {
				return nil, err
			}
			if cached != nil {
				preview = cached.TranslatedContent
			}
		}
		data.Preview = &preview
	}
	return data, nil
}
