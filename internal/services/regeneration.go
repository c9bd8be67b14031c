package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/queue"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// SubmitRegenerationRequest carries a moderation suggestion into the ad-hoc
// regeneration path.
type SubmitRegenerationRequest struct {
	SuggestionID    uuid.UUID       `json:"suggestion_id"`
	TargetType      string          `json:"target_type"`
	TargetID        uuid.UUID       `json:"target_id"`
	InstructionJSON json.RawMessage `json:"instruction_json,omitempty"`
	CreatedBy       uuid.UUID       `json:"created_by"`
}

// RegenerationService creates regeneration jobs. The job row and its queue
// message commit atomically through the outbox; a periodic sweep also picks
// up pending jobs, so a dropped message is a delay, never a loss.
type RegenerationService interface {
	SubmitRegeneration(ctx context.Context, req SubmitRegenerationRequest) (*types.RegenerationJob, error)
	GetRegenerationJob(ctx context.Context, id uuid.UUID) (*types.RegenerationJob, error)
}

type regenerationService struct {
	db     *gorm.DB
	log    *logger.Logger
	jobs   repos.RegenerationJobRepo
	outbox repos.OutboxRepo
	audit  AuditService
}

func NewRegenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs repos.RegenerationJobRepo,
	outbox repos.OutboxRepo,
	audit AuditService,
) RegenerationService {
	return &regenerationService{
		db:     db,
		log:    baseLog.With("service", "RegenerationService"),
		jobs:   jobs,
		outbox: outbox,
		audit:  audit,
	}
}

func (s *regenerationService) SubmitRegeneration(ctx context.Context, req SubmitRegenerationRequest) (*types.RegenerationJob, error) {
	if req.SuggestionID == uuid.Nil || req.TargetType == "" || req.TargetID == uuid.Nil {
		return nil, fmt.Errorf("missing suggestion_id, target_type or target_id")
	}
	if req.CreatedBy == uuid.Nil {
		return nil, fmt.Errorf("missing created_by")
	}
	var job *types.RegenerationJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = s.jobs.Create(ctx, tx, &types.RegenerationJob{
			SuggestionID:    req.SuggestionID,
			TargetType:      req.TargetType,
			TargetID:        req.TargetID,
			InstructionJSON: datatypes.JSON(req.InstructionJSON),
			Status:          types.RegenerationPending,
			CreatedBy:       req.CreatedBy,
		})
		if err != nil {
			return err
		}
		return enqueueRegeneration(ctx, tx, s.outbox, job.ID)
	})
	if err != nil {
		return nil, err
	}
	jobID := job.ID
	actor := req.CreatedBy
	s.audit.Record(ctx, nil, types.AuditEnqueued, "REGENERATION_JOB", &jobID, &actor, map[string]any{
		"suggestion_id": req.SuggestionID,
		"target_type":   req.TargetType,
	})
	return job, nil
}

func (s *regenerationService) GetRegenerationJob(ctx context.Context, id uuid.UUID) (*types.RegenerationJob, error) {
	return s.jobs.GetByID(ctx, nil, id)
}

// enqueueRegeneration writes the REGENERATE outbox envelope inside the
// caller's transaction.
func enqueueRegeneration(ctx context.Context, tx *gorm.DB, outbox repos.OutboxRepo, jobID uuid.UUID) error {
	body, err := json.Marshal(map[string]any{"job_id": jobID})
	if err != nil {
		return err
	}
	env, err := json.Marshal(queue.Envelope{Type: queue.EnvelopeRegenerate, Payload: body})
	if err != nil {
		return err
	}
	_, err = outbox.Create(ctx, tx, &types.OutboxMessage{
		Queue:   queue.QueueRegeneration,
		Payload: datatypes.JSON(env),
	})
	return err
}
