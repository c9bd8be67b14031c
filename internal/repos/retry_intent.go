package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type RetryIntentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, intent *types.RetryIntent) (*types.RetryIntent, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RetryIntent, error)
	// ConsumeIfPending is the at-most-once gate: an atomic PENDING->CONSUMED
	// update. Rows affected tells the caller whether it won the race; a loser
	// re-reads the row to distinguish "not found" from "already finalized".
	ConsumeIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error)
	RejectIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error)
}

type retryIntentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRetryIntentRepo(db *gorm.DB, baseLog *logger.Logger) RetryIntentRepo {
	return &retryIntentRepo{
		db:  db,
		log: baseLog.With("repo", "RetryIntentRepo"),
	}
}

func (r *retryIntentRepo) Create(ctx context.Context, tx *gorm.DB, intent *types.RetryIntent) (*types.RetryIntent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.Status == "" {
		intent.Status = types.RetryIntentPending
	}
	if err := transaction.WithContext(ctx).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *retryIntentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RetryIntent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var intent types.RetryIntent
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == uuid.Nil {
		return nil, nil
	}
	return &intent, nil
}

func (r *retryIntentRepo) ConsumeIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	return r.transition(ctx, tx, id, types.RetryIntentConsumed)
}

func (r *retryIntentRepo) RejectIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	return r.transition(ctx, tx, id, types.RetryIntentRejected)
}

func (r *retryIntentRepo) transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, to types.RetryIntentStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.RetryIntent{}).
		Where("id = ? AND status = ?", id, types.RetryIntentPending).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
