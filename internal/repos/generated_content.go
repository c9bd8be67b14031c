package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type GeneratedContentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, content *types.GeneratedContent) (*types.GeneratedContent, error)
	ListByJob(ctx context.Context, tx *gorm.DB, hydrationJobID uuid.UUID) ([]*types.GeneratedContent, error)
}

type generatedContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneratedContentRepo(db *gorm.DB, baseLog *logger.Logger) GeneratedContentRepo {
	return &generatedContentRepo{
		db:  db,
		log: baseLog.With("repo", "GeneratedContentRepo"),
	}
}

func (r *generatedContentRepo) Create(ctx context.Context, tx *gorm.DB, content *types.GeneratedContent) (*types.GeneratedContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(content).Error; err != nil {
		return nil, err
	}
	return content, nil
}

func (r *generatedContentRepo) ListByJob(ctx context.Context, tx *gorm.DB, hydrationJobID uuid.UUID) ([]*types.GeneratedContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GeneratedContent
	err := transaction.WithContext(ctx).
		Where("hydration_job_id = ?", hydrationJobID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
