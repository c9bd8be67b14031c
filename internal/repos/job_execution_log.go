package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type JobExecutionLogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.JobExecutionLog) error
	ListByEntity(ctx context.Context, tx *gorm.DB, entityType string, entityID uuid.UUID) ([]*types.JobExecutionLog, error)
}

type jobExecutionLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobExecutionLogRepo(db *gorm.DB, baseLog *logger.Logger) JobExecutionLogRepo {
	return &jobExecutionLogRepo{
		db:  db,
		log: baseLog.With("repo", "JobExecutionLogRepo"),
	}
}

func (r *jobExecutionLogRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.JobExecutionLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *jobExecutionLogRepo) ListByEntity(ctx context.Context, tx *gorm.DB, entityType string, entityID uuid.UUID) ([]*types.JobExecutionLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobExecutionLog
	err := transaction.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
