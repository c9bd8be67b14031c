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

// HydrateRequest carries the denormalized metadata a hydrator needs; by the
// time a hydrator runs, submission has already resolved it all.
type HydrateRequest struct {
	ExecutionJobID uuid.UUID
	EntityType     string
	EntityID       uuid.UUID
	Board          string
	Grade          int
	Subject        string
	Language       string
	Payload        map[string]any
}

// Hydrator turns a submission into one or more HydrationJob rows plus the
// outbox message that will start them. Everything runs on the caller's
// transaction so job rows and outbox rows commit atomically.
type Hydrator interface {
	JobType() types.HydrationJobType
	Hydrate(ctx context.Context, tx *gorm.DB, req HydrateRequest) (uuid.UUID, error)
}

type syllabusHydrator struct {
	log          *logger.Logger
	hydrationJob repos.HydrationJobRepo
	outbox       repos.OutboxRepo
}

func NewSyllabusHydrator(baseLog *logger.Logger, hydrationJob repos.HydrationJobRepo, outbox repos.OutboxRepo) Hydrator {
	return &syllabusHydrator{
		log:          baseLog.With("service", "SyllabusHydrator"),
		hydrationJob: hydrationJob,
		outbox:       outbox,
	}
}

func (h *syllabusHydrator) JobType() types.HydrationJobType { return types.HydrationSyllabus }

func (h *syllabusHydrator) Hydrate(ctx context.Context, tx *gorm.DB, req HydrateRequest) (uuid.UUID, error) {
	if tx == nil {
		return uuid.Nil, fmt.Errorf("hydrate requires a transaction")
	}
	payload := map[string]any{
		"execution_job_id": req.ExecutionJobID.String(),
		"board":            req.Board,
		"grade":            req.Grade,
		"subject":          req.Subject,
		"language":         req.Language,
	}
	for k, v := range req.Payload {
		if _, ok := payload[k]; !ok {
			payload[k] = v
		}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, err
	}

	root := &types.HydrationJob{
		ID:             uuid.New(),
		JobType:        types.HydrationSyllabus,
		HierarchyLevel: 0,
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		Payload:        datatypes.JSON(payloadJSON),
		Status:         types.HydrationPending,
	}
	root.RootJobID = root.ID
	if _, err := h.hydrationJob.Create(ctx, tx, []*types.HydrationJob{root}); err != nil {
		return uuid.Nil, fmt.Errorf("create root hydration job: %w", err)
	}

	env := queue.Envelope{Type: queue.EnvelopeSyllabus}
	env.Payload, err = json.Marshal(map[string]any{"job_id": root.ID})
	if err != nil {
		return uuid.Nil, err
	}
	envJSON, err := json.Marshal(env)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := h.outbox.Create(ctx, tx, &types.OutboxMessage{
		Queue:   queue.QueueHydration,
		Payload: datatypes.JSON(envJSON),
	}); err != nil {
		return uuid.Nil, fmt.Errorf("create outbox message: %w", err)
	}

	return root.ID, nil
}
