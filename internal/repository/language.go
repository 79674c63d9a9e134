package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
	"github.com/ViksyAsenov/poly-talk/internal/model"
)

// LanguageRepository 语言仓库
type LanguageRepository struct {
	db *pgxpool.Pool
}

// NewLanguageRepository 创建语言仓库
func NewLanguageRepository(db *pgxpool.Pool) *LanguageRepository {
	return &LanguageRepository{db: db}
}

// GetByID 根据 ID 查找语言
func (r *LanguageRepository) GetByID(ctx context.Context, id int64) (*model.Language, error) {
	query := `SELECT id, code, name, created_at FROM languages WHERE id = $1`

	var lang model.Language
	err := r.db.QueryRow(ctx, query, id).Scan(
		&lang.ID,
		&lang.Code,
		&lang.Name,
		&lang.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrLanguageNotFound
		}
		return nil, err
	}

	return &lang, nil
}
