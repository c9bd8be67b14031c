package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type RegenerationJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.RegenerationJob) (*types.RegenerationJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RegenerationJob, error)
	// Claim transitions PENDING -> RUNNING inside a transaction; returns nil
	// when another worker got there first.
	Claim(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RegenerationJob, error)
	OldestPending(ctx context.Context, tx *gorm.DB) (*types.RegenerationJob, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error
}

type regenerationJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRegenerationJobRepo(db *gorm.DB, baseLog *logger.Logger) RegenerationJobRepo {
	return &regenerationJobRepo{
		db:  db,
		log: baseLog.With("repo", "RegenerationJobRepo"),
	}
}

func (r *regenerationJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.RegenerationJob) (*types.RegenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.RegenerationPending
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *regenerationJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RegenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.RegenerationJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *regenerationJobRepo) Claim(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RegenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var claimed *types.RegenerationJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		now := time.Now()
		res := txx.Model(&types.RegenerationJob{}).
			Where("id = ? AND status = ?", id, types.RegenerationPending).
			Updates(map[string]interface{}{
				"status":     types.RegenerationRunning,
				"locked_at":  now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var job types.RegenerationJob
		if err := txx.Where("id = ?", id).First(&job).Error; err != nil {
			return err
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *regenerationJobRepo) OldestPending(ctx context.Context, tx *gorm.DB) (*types.RegenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.RegenerationJob
	err := transaction.WithContext(ctx).
		Where("status = ?", types.RegenerationPending).
		Order("created_at ASC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *regenerationJobRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.RegenerationJob{}).
		Where("id = ? AND status = ?", id, types.RegenerationRunning).
		Updates(map[string]interface{}{
			"status":       types.RegenerationCompleted,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

func (r *regenerationJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.RegenerationJob{}).
		Where("id = ? AND status = ?", id, types.RegenerationRunning).
		Updates(map[string]interface{}{
			"status":       types.RegenerationFailed,
			"last_error":   lastError,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}
