package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/types"
)

var (
	ErrSourceJobNotFound      = errors.New("source job not found")
	ErrSourceJobNotFailed     = errors.New("only FAILED jobs may be retried")
	ErrIntentNotFound         = errors.New("retry intent not found")
	ErrIntentAlreadyFinalized = errors.New("retry intent already consumed or rejected")
)

// RetryIntentService is the admin approval gate for re-executing a failed
// RegenerationJob. Intents are consumed at most once, guaranteed by a
// status-guarded conditional update.
type RetryIntentService interface {
	CreateRetryIntent(ctx context.Context, sourceJobID uuid.UUID, reasonCode, reasonText string, approvedBy uuid.UUID) (*types.RetryIntent, error)
	ConsumeRetryIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RetryIntent, error)
	RejectRetryIntent(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
	// CreateRetryJobFromIntent consumes the intent and creates the retry
	// RegenerationJob in one transaction. The original job's outputs are
	// never touched; retries always produce new output rows.
	CreateRetryJobFromIntent(ctx context.Context, intentID uuid.UUID) (*types.RegenerationJob, error)
}

type retryIntentService struct {
	db        *gorm.DB
	log       *logger.Logger
	intents   repos.RetryIntentRepo
	regenJobs repos.RegenerationJobRepo
	outbox    repos.OutboxRepo
	audit     AuditService
}

func NewRetryIntentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	intents repos.RetryIntentRepo,
	regenJobs repos.RegenerationJobRepo,
	outbox repos.OutboxRepo,
	audit AuditService,
) RetryIntentService {
	return &retryIntentService{
		db:        db,
		log:       baseLog.With("service", "RetryIntentService"),
		intents:   intents,
		regenJobs: regenJobs,
		outbox:    outbox,
		audit:     audit,
	}
}

func (s *retryIntentService) CreateRetryIntent(ctx context.Context, sourceJobID uuid.UUID, reasonCode, reasonText string, approvedBy uuid.UUID) (*types.RetryIntent, error) {
	if reasonCode == "" {
		return nil, fmt.Errorf("missing reason_code")
	}
	source, err := s.regenJobs.GetByID(ctx, nil, sourceJobID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrSourceJobNotFound
	}
	if source.Status != types.RegenerationFailed {
		return nil, ErrSourceJobNotFailed
	}
	intent, err := s.intents.Create(ctx, nil, &types.RetryIntent{
		SourceJobID: sourceJobID,
		ReasonCode:  reasonCode,
		ReasonText:  reasonText,
		ApprovedBy:  approvedBy,
		Status:      types.RetryIntentPending,
	})
	if err != nil {
		return nil, err
	}
	intentID := intent.ID
	s.audit.Record(ctx, nil, types.AuditRetryIntentCreate, "RETRY_INTENT", &intentID, &approvedBy, map[string]any{
		"source_job_id": sourceJobID,
		"reason_code":   reasonCode,
	})
	return intent, nil
}

func (s *retryIntentService) ConsumeRetryIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RetryIntent, error) {
	affected, err := s.intents.ConsumeIfPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Zero rows is ambiguous: re-read to tell a missing intent from a
		// lost consume race.
		existing, err := s.intents.GetByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrIntentNotFound
		}
		return nil, ErrIntentAlreadyFinalized
	}
	intent, err := s.intents.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrIntentNotFound
	}
	return intent, nil
}

func (s *retryIntentService) RejectRetryIntent(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	affected, err := s.intents.RejectIfPending(ctx, nil, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := s.intents.GetByID(ctx, nil, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrIntentNotFound
		}
		return ErrIntentAlreadyFinalized
	}
	intentID := id
	s.audit.Record(ctx, nil, types.AuditRetryIntentReject, "RETRY_INTENT", &intentID, &actorID, nil)
	return nil
}

func (s *retryIntentService) CreateRetryJobFromIntent(ctx context.Context, intentID uuid.UUID) (*types.RegenerationJob, error) {
	var retry *types.RegenerationJob
	var intent *types.RetryIntent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		intent, err = s.ConsumeRetryIntent(ctx, tx, intentID)
		if err != nil {
			return err
		}
		source, err := s.regenJobs.GetByID(ctx, tx, intent.SourceJobID)
		if err != nil {
			return err
		}
		if source == nil {
			return ErrSourceJobNotFound
		}
		sourceID := source.ID
		retry, err = s.regenJobs.Create(ctx, tx, &types.RegenerationJob{
			SuggestionID:    source.SuggestionID,
			TargetType:      source.TargetType,
			TargetID:        source.TargetID,
			InstructionJSON: source.InstructionJSON,
			Status:          types.RegenerationPending,
			RetryOfJobID:    &sourceID,
			RetryIntentID:   &intent.ID,
			CreatedBy:       source.CreatedBy,
		})
		if err != nil {
			return err
		}
		return enqueueRegeneration(ctx, tx, s.outbox, retry.ID)
	})
	if err != nil {
		return nil, err
	}
	retryID := retry.ID
	approver := intent.ApprovedBy
	s.audit.Record(ctx, nil, types.AuditRetryJobCreated, "REGENERATION_JOB", &retryID, &approver, map[string]any{
		"retry_of_job_id": retry.RetryOfJobID,
		"retry_intent_id": intentID,
	})
	s.log.Info("Retry job created from intent", "intent_id", intentID, "retry_job_id", retry.ID)
	return retry, nil
}
