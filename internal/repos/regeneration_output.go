package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// RegenerationOutputRepo is append-only on purpose: outputs are never mutated
// or superseded in place.
type RegenerationOutputRepo interface {
	Create(ctx context.Context, tx *gorm.DB, out *types.RegenerationOutput) (*types.RegenerationOutput, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RegenerationOutput, error)
	ListByTarget(ctx context.Context, tx *gorm.DB, targetType string, targetID uuid.UUID) ([]*types.RegenerationOutput, error)
}

type regenerationOutputRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRegenerationOutputRepo(db *gorm.DB, baseLog *logger.Logger) RegenerationOutputRepo {
	return &regenerationOutputRepo{
		db:  db,
		log: baseLog.With("repo", "RegenerationOutputRepo"),
	}
}

func (r *regenerationOutputRepo) Create(ctx context.Context, tx *gorm.DB, out *types.RegenerationOutput) (*types.RegenerationOutput, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *regenerationOutputRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RegenerationOutput, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.RegenerationOutput
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *regenerationOutputRepo) ListByTarget(ctx context.Context, tx *gorm.DB, targetType string, targetID uuid.UUID) ([]*types.RegenerationOutput, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RegenerationOutput
	err := transaction.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
