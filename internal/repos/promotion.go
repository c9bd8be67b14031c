package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type PromotionCandidateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cand *types.PromotionCandidate) (*types.PromotionCandidate, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PromotionCandidate, error)
	ApproveIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID, approvedBy uuid.UUID) (int64, error)
	RejectIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error)
}

type promotionCandidateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromotionCandidateRepo(db *gorm.DB, baseLog *logger.Logger) PromotionCandidateRepo {
	return &promotionCandidateRepo{
		db:  db,
		log: baseLog.With("repo", "PromotionCandidateRepo"),
	}
}

func (r *promotionCandidateRepo) Create(ctx context.Context, tx *gorm.DB, cand *types.PromotionCandidate) (*types.PromotionCandidate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if cand.ID == uuid.Nil {
		cand.ID = uuid.New()
	}
	if cand.Status == "" {
		cand.Status = types.PromotionPending
	}
	if err := transaction.WithContext(ctx).Create(cand).Error; err != nil {
		return nil, err
	}
	return cand, nil
}

func (r *promotionCandidateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PromotionCandidate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cand types.PromotionCandidate
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&cand).Error
	if err != nil {
		return nil, err
	}
	if cand.ID == uuid.Nil {
		return nil, nil
	}
	return &cand, nil
}

func (r *promotionCandidateRepo) ApproveIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID, approvedBy uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.PromotionCandidate{}).
		Where("id = ? AND status = ?", id, types.PromotionPending).
		Updates(map[string]interface{}{
			"status":      types.PromotionApproved,
			"approved_by": approvedBy,
			"approved_at": now,
			"updated_at":  now,
		})
	return res.RowsAffected, res.Error
}

func (r *promotionCandidateRepo) RejectIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.PromotionCandidate{}).
		Where("id = ? AND status = ?", id, types.PromotionPending).
		Updates(map[string]interface{}{
			"status":     types.PromotionRejected,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

type PublishedOutputRepo interface {
	// Replace deletes any live row for (scope, scopeRefID) and creates the
	// new one. Must run inside the approval transaction.
	Replace(ctx context.Context, tx *gorm.DB, scope string, scopeRefID uuid.UUID, outputRef uuid.UUID) (*types.PublishedOutput, error)
	GetForScope(ctx context.Context, tx *gorm.DB, scope string, scopeRefID uuid.UUID) (*types.PublishedOutput, error)
}

type publishedOutputRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPublishedOutputRepo(db *gorm.DB, baseLog *logger.Logger) PublishedOutputRepo {
	return &publishedOutputRepo{
		db:  db,
		log: baseLog.With("repo", "PublishedOutputRepo"),
	}
}

func (r *publishedOutputRepo) Replace(ctx context.Context, tx *gorm.DB, scope string, scopeRefID uuid.UUID, outputRef uuid.UUID) (*types.PublishedOutput, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("scope = ? AND scope_ref_id = ?", scope, scopeRefID).
		Delete(&types.PublishedOutput{}).Error; err != nil {
		return nil, err
	}
	pub := &types.PublishedOutput{
		ID:         uuid.New(),
		Scope:      scope,
		ScopeRefID: scopeRefID,
		OutputRef:  outputRef,
	}
	if err := transaction.WithContext(ctx).Create(pub).Error; err != nil {
		return nil, err
	}
	return pub, nil
}

func (r *publishedOutputRepo) GetForScope(ctx context.Context, tx *gorm.DB, scope string, scopeRefID uuid.UUID) (*types.PublishedOutput, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var pub types.PublishedOutput
	err := transaction.WithContext(ctx).
		Where("scope = ? AND scope_ref_id = ?", scope, scopeRefID).
		Limit(1).
		Find(&pub).Error
	if err != nil {
		return nil, err
	}
	if pub.ID == uuid.Nil {
		return nil, nil
	}
	return &pub, nil
}
