package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ViksyAsenov/poly-talk/internal/model"
)

// MessageRepository 消息仓库
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository 创建消息仓库
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息，时间戳由数据库生成
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, original_language_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.OriginalLanguageID,
	).Scan(&msg.CreatedAt)
}

// GetByID 根据 ID 查找消息，不存在时返回 (nil, nil)
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, original_language_id, created_at
		FROM messages WHERE id = $1
	`

	var msg model.Message
	err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Content,
		&msg.OriginalLanguageID,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &msg, nil
}

// ListByConversation 按时间向前分页获取会话消息
// 取 created_at <= before 的最新 limit 条，按时间升序返回；
// 同一时刻的消息以插入顺序（ID）为次级排序键
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID int64, before time.Time, limit int) ([]model.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, original_language_id, created_at
		FROM messages
		WHERE conversation_id = $1 AND created_at <= $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.OriginalLanguageID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 倒序查询结果转为升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// LatestInConversation 获取会话最新一条消息，没有消息时返回 (nil, nil)
func (r *MessageRepository) LatestInConversation(ctx context.Context, conversationID int64) (*model.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, original_language_id, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var msg model.Message
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Content,
		&msg.OriginalLanguageID,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &msg, nil
}

// Delete 删除消息及其全部翻译
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM message_translations WHERE message_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
