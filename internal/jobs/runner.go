package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/failure"
	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// ProgressReporter is the only way a workFn touches the parent chain. It
// documents the side effect instead of letting work functions reach into the
// tree directly.
type ProgressReporter interface {
	// IncrementParent bumps a completed counter on every ancestor of the
	// running job.
	IncrementParent(ctx context.Context, counter string) error
	// ReportChildFailure records a bounded child-failure reference on the
	// root so failures bubble up without duplicating messages.
	ReportChildFailure(ctx context.Context, childCode failure.Code) error
	// AddCost accumulates token/cost usage on the running job.
	AddCost(ctx context.Context, inputTokens, outputTokens, costCents int) error
}

// JobContext is the execution handle a workFn gets for one claimed job. The
// transaction boundary, the claimed row, and the progress capability come
// through here; workFns never update job status themselves.
type JobContext struct {
	Ctx      context.Context
	Tx       *gorm.DB
	Job      *types.HydrationJob
	Progress ProgressReporter
}

type WorkFn func(jc *JobContext) error

// RunResult reports what happened to one Run call. Claimed=false is the
// expected steady-state outcome under contention, not an error.
type RunResult struct {
	Claimed bool
	Failed  bool
	Code    failure.Code
}

// Runner drives the claim -> execute -> finalize loop for one HydrationJob.
// The claim is a status-guarded conditional update; retry policy lives at a
// higher layer, the runner never re-runs anything.
type Runner struct {
	db    *gorm.DB
	log   *logger.Logger
	repo  repos.HydrationJobRepo
	audit AuditRecorder
}

// AuditRecorder is the narrow slice of the audit service the jobs package
// needs; writes must be best-effort.
type AuditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, action string, entityType string, entityID *uuid.UUID, actorID *uuid.UUID, metadata map[string]any)
}

func NewRunner(db *gorm.DB, baseLog *logger.Logger, repo repos.HydrationJobRepo, audit AuditRecorder) *Runner {
	return &Runner{
		db:    db,
		log:   baseLog.With("component", "HydrationRunner"),
		repo:  repo,
		audit: audit,
	}
}

func (r *Runner) Run(ctx context.Context, jobID uuid.UUID, workFn WorkFn) (RunResult, error) {
	claimed, err := r.repo.Claim(ctx, nil, jobID)
	if err != nil {
		return RunResult{}, fmt.Errorf("claim hydration job %s: %w", jobID, err)
	}
	if !claimed {
		telemetry.ClaimsContended.Inc()
		return RunResult{Claimed: false}, nil
	}
	telemetry.ClaimsGranted.Inc()

	job, err := r.repo.GetByID(ctx, nil, jobID)
	if err != nil {
		return RunResult{Claimed: true}, fmt.Errorf("reload claimed job %s: %w", jobID, err)
	}
	if job == nil {
		return RunResult{Claimed: true}, fmt.Errorf("claimed job %s disappeared", jobID)
	}
	id := job.ID
	r.audit.Record(ctx, nil, types.AuditStarted, "HYDRATION_JOB", &id, nil, map[string]any{"job_type": job.JobType, "attempt": job.Attempts})

	// Content writes and counter increments commit atomically; the terminal
	// status update happens after commit. A crash in the gap leaves the job
	// content-complete but running, which the reconciler closes later.
	workErr := r.runInTransaction(ctx, job, workFn)
	if workErr == nil {
		if err := r.repo.MarkCompleted(ctx, nil, jobID); err != nil {
			return RunResult{Claimed: true}, fmt.Errorf("finalize job %s: %w", jobID, err)
		}
		telemetry.JobsCompleted.Inc()
		r.audit.Record(ctx, nil, types.AuditCompleted, "HYDRATION_JOB", &id, nil, nil)
		return RunResult{Claimed: true}, nil
	}

	code := failure.ClassifyErr(workErr)
	lastError := failure.FormatLastError(code, workErr.Error())
	if err := r.repo.MarkFailed(ctx, nil, jobID, lastError); err != nil {
		return RunResult{Claimed: true, Failed: true, Code: code}, fmt.Errorf("persist failure for job %s: %w", jobID, err)
	}
	if job.ParentJobID != nil && job.RootJobID != job.ID {
		// Reference, not message duplication: the root sees which child
		// failed and with what code.
		if err := r.repo.SetLastError(ctx, nil, job.RootJobID, failure.FormatChildFailure(job.ID, string(job.JobType), code)); err != nil {
			r.log.Warn("Failed to record child failure on root", "root_job_id", job.RootJobID, "error", err)
		}
	}
	telemetry.JobsFailed.WithLabelValues(string(code)).Inc()
	r.audit.Record(ctx, nil, types.AuditFailed, "HYDRATION_JOB", &id, nil, map[string]any{"code": code})
	r.log.Warn("Hydration job failed", "job_id", jobID, "job_type", job.JobType, "code", code, "error", workErr)
	return RunResult{Claimed: true, Failed: true, Code: code}, nil
}

func (r *Runner) runInTransaction(ctx context.Context, job *types.HydrationJob, workFn WorkFn) (workErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Work function panic", "job_id", job.ID, "job_type", job.JobType, "panic", rec)
			workErr = fmt.Errorf("panic in work function: %v", rec)
		}
	}()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		jc := &JobContext{
			Ctx:      ctx,
			Tx:       tx,
			Job:      job,
			Progress: &progressReporter{repo: r.repo, tx: tx, job: job},
		}
		return workFn(jc)
	})
}

type progressReporter struct {
	repo repos.HydrationJobRepo
	tx   *gorm.DB
	job  *types.HydrationJob
}

func (p *progressReporter) IncrementParent(ctx context.Context, counter string) error {
	parentID := p.job.ParentJobID
	for parentID != nil {
		if err := p.repo.IncrementCounter(ctx, p.tx, *parentID, counter); err != nil {
			return err
		}
		parent, err := p.repo.GetByID(ctx, p.tx, *parentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		parentID = parent.ParentJobID
	}
	return nil
}

func (p *progressReporter) ReportChildFailure(ctx context.Context, childCode failure.Code) error {
	if p.job.ParentJobID == nil {
		return nil
	}
	return p.repo.SetLastError(ctx, p.tx, p.job.RootJobID, failure.FormatChildFailure(p.job.ID, string(p.job.JobType), childCode))
}

func (p *progressReporter) AddCost(ctx context.Context, inputTokens, outputTokens, costCents int) error {
	return p.repo.AddCost(ctx, p.tx, p.job.ID, inputTokens, outputTokens, costCents)
}
