package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/failure"
	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/services"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// RegenerationWorker processes moderation-triggered regenerations. Unlike
// hydration jobs these have no tree: one claim, one generation, one output
// row plus a pending promotion candidate for an admin to review.
type RegenerationWorker struct {
	db        *gorm.DB
	log       *logger.Logger
	regen     repos.RegenerationJobRepo
	outputs   repos.RegenerationOutputRepo
	promotion repos.PromotionCandidateRepo
	generator services.GenerationClient
	audit     AuditRecorder
}

func NewRegenerationWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	regen repos.RegenerationJobRepo,
	outputs repos.RegenerationOutputRepo,
	promotion repos.PromotionCandidateRepo,
	generator services.GenerationClient,
	audit AuditRecorder,
) *RegenerationWorker {
	return &RegenerationWorker{
		db:        db,
		log:       baseLog.With("component", "RegenerationWorker"),
		regen:     regen,
		outputs:   outputs,
		promotion: promotion,
		generator: generator,
		audit:     audit,
	}
}

// ProcessNext claims and runs the oldest pending regeneration, if any. The
// scheduler calls this as a sweep so jobs whose queue message was lost still
// get picked up. Returns false when there was nothing to do.
func (w *RegenerationWorker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.regen.OldestPending(ctx, nil)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	return w.ProcessJob(ctx, job.ID)
}

// ProcessJob claims one regeneration job and runs it to a terminal status.
// A lost claim returns (false, nil) with no audit noise.
func (w *RegenerationWorker) ProcessJob(ctx context.Context, id uuid.UUID) (bool, error) {
	job, err := w.regen.Claim(ctx, nil, id)
	if err != nil {
		return false, err
	}
	if job == nil {
		telemetry.ClaimsContended.Inc()
		return false, nil
	}
	telemetry.ClaimsGranted.Inc()
	w.audit.Record(ctx, nil, types.AuditLocked, "REGENERATION_JOB", &job.ID, nil, nil)
	w.audit.Record(ctx, nil, types.AuditStarted, "REGENERATION_JOB", &job.ID, nil, map[string]any{
		"target_type": job.TargetType,
		"target_id":   job.TargetID.String(),
	})

	if err := w.execute(ctx, job); err != nil {
		code := failure.ClassifyErr(err)
		lastErr := failure.FormatLastError(code, err.Error())
		if markErr := w.regen.MarkFailed(ctx, nil, job.ID, lastErr); markErr != nil {
			w.log.Error("mark regeneration failed", "job_id", job.ID, "error", markErr)
		}
		telemetry.JobsFailed.WithLabelValues(string(code)).Inc()
		w.audit.Record(ctx, nil, types.AuditFailed, "REGENERATION_JOB", &job.ID, nil, map[string]any{
			"code":  string(code),
			"error": lastErr,
		})
		return true, nil
	}

	if err := w.regen.MarkCompleted(ctx, nil, job.ID); err != nil {
		return true, err
	}
	telemetry.JobsCompleted.Inc()
	w.audit.Record(ctx, nil, types.AuditCompleted, "REGENERATION_JOB", &job.ID, nil, nil)
	return true, nil
}

func (w *RegenerationWorker) execute(ctx context.Context, job *types.RegenerationJob) error {
	res, err := w.generator.Generate(ctx, services.GenerationRequest{
		Kind:        "regenerate",
		Instruction: json.RawMessage(job.InstructionJSON),
	})
	if err != nil {
		return err
	}
	// Output row and promotion candidate land together or not at all.
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out, err := w.outputs.Create(ctx, tx, &types.RegenerationOutput{
			RegenerationJobID: job.ID,
			TargetType:        job.TargetType,
			TargetID:          job.TargetID,
			Content:           datatypes.JSON(res.Content),
			InputTokens:       res.InputTokens,
			OutputTokens:      res.OutputTokens,
		})
		if err != nil {
			return fmt.Errorf("persist regeneration output: %w", err)
		}
		if _, err := w.promotion.Create(ctx, tx, &types.PromotionCandidate{
			Scope:             job.TargetType,
			ScopeRefID:        job.TargetID,
			RegenerationJobID: job.ID,
			OutputRef:         out.ID,
			Status:            types.PromotionPending,
		}); err != nil {
			return fmt.Errorf("create promotion candidate: %w", err)
		}
		return nil
	})
}
