package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// Counter names a progress reporter may increment on a parent chain.
const (
	CounterChildren  = "children"
	CounterNotes     = "notes"
	CounterQuestions = "questions"
)

type HydrationJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, jobs []*types.HydrationJob) ([]*types.HydrationJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HydrationJob, error)
	// Claim is the sole at-most-one-worker guarantee: a conditional update
	// that succeeds only while the row is still pending. Zero rows affected
	// means another worker holds the job.
	Claim(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error
	SetContentReady(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	SetLastError(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	IncrementCounter(ctx context.Context, tx *gorm.DB, id uuid.UUID, counter string) error
	ListByRoot(ctx context.Context, tx *gorm.DB, rootJobID uuid.UUID) ([]*types.HydrationJob, error)
	GetByRootAndType(ctx context.Context, tx *gorm.DB, rootJobID uuid.UUID, jobType types.HydrationJobType) (*types.HydrationJob, error)
	// ListContentReadyRoots feeds the reconciler: completed roots whose
	// content is ready, oldest first.
	ListContentReadyRoots(ctx context.Context, tx *gorm.DB, limit int) ([]*types.HydrationJob, error)
	AddCost(ctx context.Context, tx *gorm.DB, id uuid.UUID, inputTokens, outputTokens, costCents int) error
}

type hydrationJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHydrationJobRepo(db *gorm.DB, baseLog *logger.Logger) HydrationJobRepo {
	return &hydrationJobRepo{
		db:  db,
		log: baseLog.With("repo", "HydrationJobRepo"),
	}
}

func (r *hydrationJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.HydrationJob) ([]*types.HydrationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.HydrationJob{}, nil
	}
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		if j.Status == "" {
			j.Status = types.HydrationPending
		}
		if j.MaxAttempts == 0 {
			j.MaxAttempts = 3
		}
		// Roots reference themselves so every descendant query stays uniform.
		if j.ParentJobID == nil && j.RootJobID == uuid.Nil {
			j.RootJobID = j.ID
		}
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *hydrationJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HydrationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.HydrationJob
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

func (r *hydrationJobRepo) Claim(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ? AND status = ?", id, types.HydrationPending).
		Updates(map[string]interface{}{
			"status":     types.HydrationRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"locked_at":  now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *hydrationJobRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ? AND status = ?", id, types.HydrationRunning).
		Updates(map[string]interface{}{
			"status":       types.HydrationCompleted,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

func (r *hydrationJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ? AND status = ?", id, types.HydrationRunning).
		Updates(map[string]interface{}{
			"status":     types.HydrationFailed,
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}

func (r *hydrationJobRepo) SetContentReady(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content_ready": true,
			"updated_at":    time.Now(),
		}).Error
}

func (r *hydrationJobRepo) SetLastError(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}

func (r *hydrationJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *hydrationJobRepo) IncrementCounter(ctx context.Context, tx *gorm.DB, id uuid.UUID, counter string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var column string
	switch counter {
	case CounterChildren:
		column = "completed_children"
	case CounterNotes:
		column = "completed_notes"
	case CounterQuestions:
		column = "completed_questions"
	default:
		return gorm.ErrInvalidField
	}
	return transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": time.Now(),
		}).Error
}

func (r *hydrationJobRepo) ListByRoot(ctx context.Context, tx *gorm.DB, rootJobID uuid.UUID) ([]*types.HydrationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HydrationJob
	err := transaction.WithContext(ctx).
		Where("root_job_id = ?", rootJobID).
		Order("hierarchy_level ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *hydrationJobRepo) GetByRootAndType(ctx context.Context, tx *gorm.DB, rootJobID uuid.UUID, jobType types.HydrationJobType) (*types.HydrationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.HydrationJob
	err := transaction.WithContext(ctx).
		Where("root_job_id = ? AND job_type = ?", rootJobID, jobType).
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

func (r *hydrationJobRepo) ListContentReadyRoots(ctx context.Context, tx *gorm.DB, limit int) ([]*types.HydrationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.HydrationJob
	err := transaction.WithContext(ctx).
		Where("parent_job_id IS NULL AND content_ready = ?", true).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *hydrationJobRepo) AddCost(ctx context.Context, tx *gorm.DB, id uuid.UUID, inputTokens, outputTokens, costCents int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.HydrationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"input_tokens":  gorm.Expr("input_tokens + ?", inputTokens),
			"output_tokens": gorm.Expr("output_tokens + ?", outputTokens),
			"cost_cents":    gorm.Expr("cost_cents + ?", costCents),
			"updated_at":    time.Now(),
		}).Error
}
