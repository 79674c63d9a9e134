package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ViksyAsenov/poly-talk/internal/model"
)

// TranslationRepository 消息翻译缓存仓库
type TranslationRepository struct {
	db *pgxpool.Pool
}

// NewTranslationRepository 创建翻译仓库
func NewTranslationRepository(db *pgxpool.Pool) *TranslationRepository {
	return &TranslationRepository{db: db}
}

// Get 按 (message_id, target_language_id) 查找翻译，不存在时返回 (nil, nil)
func (r *TranslationRepository) Get(ctx context.Context, messageID, targetLanguageID int64) (*model.Translation, error) {
	query := `
		SELECT message_id, target_language_id, translated_content, created_at
		FROM message_translations
		WHERE message_id = $1 AND target_language_id = $2
	`

	var t model.Translation
	err := r.db.QueryRow(ctx, query, messageID, targetLanguageID).Scan(
		&t.MessageID,
		&t.TargetLanguageID,
		&t.TranslatedContent,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &t, nil
}

// Upsert 写入翻译，唯一键冲突时覆盖译文
// 缓存一经写入即为权威结果，幂等
func (r *TranslationRepository) Upsert(ctx context.Context, t *model.Translation) error {
	query := `
		INSERT INTO message_translations (message_id, target_language_id, translated_content, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (message_id, target_language_id)
		DO UPDATE SET translated_content = EXCLUDED.translated_content
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		t.MessageID,
		t.TargetLanguageID,
		t.TranslatedContent,
	).Scan(&t.CreatedAt)
}
