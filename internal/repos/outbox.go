package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type OutboxRepo interface {
	// Create must be called with the same transaction as the business write
	// that needs the downstream message.
	Create(ctx context.Context, tx *gorm.DB, msg *types.OutboxMessage) (*types.OutboxMessage, error)
	ListUnsent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.OutboxMessage, error)
	MarkSent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	IncrementAttempts(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{
		db:  db,
		log: baseLog.With("repo", "OutboxRepo"),
	}
}

func (r *outboxRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.OutboxMessage) (*types.OutboxMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *outboxRepo) ListUnsent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.OutboxMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var out []*types.OutboxMessage
	err := transaction.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sent_at":    now,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		}).Error
}

func (r *outboxRepo) IncrementAttempts(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		}).Error
}
