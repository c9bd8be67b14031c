package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type ExecutionJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.ExecutionJob) (*types.ExecutionJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ExecutionJob, error)
	UpdatePayload(ctx context.Context, tx *gorm.DB, id uuid.UUID, payload datatypes.JSON) error
	// MarkCompletedIfNotTerminal flips a job to completed only while it is
	// still pending or running. Returns rows affected so the reconciler can
	// tell whether it actually closed the job.
	MarkCompletedIfNotTerminal(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error
	MarkRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type executionJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExecutionJobRepo(db *gorm.DB, baseLog *logger.Logger) ExecutionJobRepo {
	return &executionJobRepo{
		db:  db,
		log: baseLog.With("repo", "ExecutionJobRepo"),
	}
}

func (r *executionJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.ExecutionJob) (*types.ExecutionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.ExecutionPending
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *executionJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ExecutionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.ExecutionJob
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

func (r *executionJobRepo) UpdatePayload(ctx context.Context, tx *gorm.DB, id uuid.UUID, payload datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ExecutionJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payload":    payload,
			"updated_at": time.Now(),
		}).Error
}

func (r *executionJobRepo) MarkCompletedIfNotTerminal(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.ExecutionJob{}).
		Where("id = ? AND status IN ?", id, []types.ExecutionJobStatus{types.ExecutionPending, types.ExecutionRunning}).
		Updates(map[string]interface{}{
			"status":     types.ExecutionCompleted,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *executionJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ExecutionJob{}).
		Where("id = ? AND status IN ?", id, []types.ExecutionJobStatus{types.ExecutionPending, types.ExecutionRunning}).
		Updates(map[string]interface{}{
			"status":     types.ExecutionFailed,
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}

func (r *executionJobRepo) MarkRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ExecutionJob{}).
		Where("id = ? AND status = ?", id, types.ExecutionPending).
		Updates(map[string]interface{}{
			"status":     types.ExecutionRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		}).Error
}
