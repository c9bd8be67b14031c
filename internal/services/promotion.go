package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
	"github.com/brightboard/contentforge-backend/internal/types"
)

var (
	ErrCandidateNotFound  = errors.New("promotion candidate not found")
	ErrCandidateFinalized = errors.New("promotion candidate already approved or rejected")
)

// PromotionService gates publication of regenerated outputs. An approval
// atomically replaces the live PublishedOutput for its scope; there is no
// partial or soft unpublish.
type PromotionService interface {
	CreateCandidate(ctx context.Context, tx *gorm.DB, cand *types.PromotionCandidate) (*types.PromotionCandidate, error)
	ApproveCandidate(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID) (*types.PublishedOutput, error)
	RejectCandidate(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
}

type promotionService struct {
	db         *gorm.DB
	log        *logger.Logger
	candidates repos.PromotionCandidateRepo
	published  repos.PublishedOutputRepo
	audit      AuditService
}

func NewPromotionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	candidates repos.PromotionCandidateRepo,
	published repos.PublishedOutputRepo,
	audit AuditService,
) PromotionService {
	return &promotionService{
		db:         db,
		log:        baseLog.With("service", "PromotionService"),
		candidates: candidates,
		published:  published,
		audit:      audit,
	}
}

func (s *promotionService) CreateCandidate(ctx context.Context, tx *gorm.DB, cand *types.PromotionCandidate) (*types.PromotionCandidate, error) {
	cand.Status = types.PromotionPending
	return s.candidates.Create(ctx, tx, cand)
}

func (s *promotionService) ApproveCandidate(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID) (*types.PublishedOutput, error) {
	var published *types.PublishedOutput
	var cand *types.PromotionCandidate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cand, err = s.candidates.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if cand == nil {
			return ErrCandidateNotFound
		}
		affected, err := s.candidates.ApproveIfPending(ctx, tx, id, approvedBy)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCandidateFinalized
		}
		// At most one live output per (scope, scope_ref_id): the prior row
		// goes away in the same transaction the new one appears.
		published, err = s.published.Replace(ctx, tx, cand.Scope, cand.ScopeRefID, cand.OutputRef)
		return err
	})
	if err != nil {
		return nil, err
	}
	telemetry.PromotionApproved.Inc()
	candID := id
	s.audit.Record(ctx, nil, types.AuditPromotionApproved, "PROMOTION_CANDIDATE", &candID, &approvedBy, map[string]any{
		"scope":        cand.Scope,
		"scope_ref_id": cand.ScopeRefID,
		"output_ref":   cand.OutputRef,
	})
	s.log.Info("Promotion approved", "candidate_id", id, "scope", cand.Scope, "scope_ref_id", cand.ScopeRefID)
	return published, nil
}

func (s *promotionService) RejectCandidate(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	affected, err := s.candidates.RejectIfPending(ctx, nil, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := s.candidates.GetByID(ctx, nil, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrCandidateNotFound
		}
		return ErrCandidateFinalized
	}
	candID := id
	s.audit.Record(ctx, nil, types.AuditPromotionRejected, "PROMOTION_CANDIDATE", &candID, &actorID, nil)
	return nil
}
