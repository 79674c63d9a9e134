package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ViksyAsenov/poly-talk/internal/model"
)

// ConversationRepository 会话仓库
type ConversationRepository struct {
	db *pgxpool.Pool
}

// NewConversationRepository 创建会话仓库
func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create 创建会话
func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	query := `
		INSERT INTO conversations (id, name, is_group, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		conv.ID,
		conv.Name,
		conv.IsGroup,
		conv.CreatedBy,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
}

// GetByID 根据 ID 查找会话，不存在时返回 (nil, nil)
func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	query := `
		SELECT id, name, is_group, created_by, created_at, updated_at
		FROM conversations WHERE id = $1
	`

	var conv model.Conversation
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.Name,
		&conv.IsGroup,
		&conv.CreatedBy,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &conv, nil
}

// Rename 更新会话名称
func (r *ConversationRepository) Rename(ctx context.Context, id int64, name string) error {
	query := `UPDATE conversations SET name = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, name)
	return err
}

// GetParticipants 获取会话的全部参与者
func (r *ConversationRepository) GetParticipants(ctx context.Context, conversationID int64) ([]model.Participant, error) {
	query := `
		SELECT id, user_id, conversation_id, is_admin, created_at, updated_at
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.UserID, &p.ConversationID, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// GetParticipant 获取某用户在某会话中的参与记录，不存在时返回 (nil, nil)
func (r *ConversationRepository) GetParticipant(ctx context.Context, userID, conversationID int64) (*model.Participant, error) {
	query := `
		SELECT id, user_id, conversation_id, is_admin, created_at, updated_at
		FROM conversation_participants
		WHERE user_id = $1 AND conversation_id = $2
	`

	var p model.Participant
	err := r.db.QueryRow(ctx, query, userID, conversationID).Scan(
		&p.ID,
		&p.UserID,
		&p.ConversationID,
		&p.IsAdmin,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

// AddParticipant 添加参与者
// (user_id, conversation_id) 上有唯一约束，冲突时不报错、不重复插入
func (r *ConversationRepository) AddParticipant(ctx context.Context, p *model.Participant) error {
	query := `
		INSERT INTO conversation_participants (id, user_id, conversation_id, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id, conversation_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.UserID, p.ConversationID, p.IsAdmin)
	return err
}

// RemoveParticipant 移除参与者，重复删除视为幂等
func (r *ConversationRepository) RemoveParticipant(ctx context.Context, userID, conversationID int64) error {
	query := `DELETE FROM conversation_participants WHERE user_id = $1 AND conversation_id = $2`
	_, err := r.db.Exec(ctx, query, userID, conversationID)
	return err
}

// SetParticipantAdmin 设置参与者管理员标记
func (r *ConversationRepository) SetParticipantAdmin(ctx context.Context, userID, conversationID int64, isAdmin bool) error {
	query := `
		UPDATE conversation_participants SET is_admin = $3, updated_at = NOW()
		WHERE user_id = $1 AND conversation_id = $2
	`
	_, err := r.db.Exec(ctx, query, userID, conversationID, isAdmin)
	return err
}

// ListIDsForUser 获取用户参与的全部会话 ID
func (r *ConversationRepository) ListIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT conversation_id FROM conversation_participants WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Delete 删除会话，级联删除其消息、翻译和参与者
func (r *ConversationRepository) Delete(ctx context.Context, conversationID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM message_translations WHERE message_id IN (SELECT id FROM messages WHERE conversation_id = $1)`,
		`DELETE FROM messages WHERE conversation_id = $1`,
		`DELETE FROM conversation_participants WHERE conversation_id = $1`,
		`DELETE FROM conversations WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, conversationID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
