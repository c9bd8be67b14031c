package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// Reconciler closes the gap between "hydration tree content-ready" and
// "linked ExecutionJob completed". The gap exists because the runner commits
// content before it writes terminal status; how stale the link may get is
// bounded by the reconciler's cron schedule, an explicit configuration
// contract (RECONCILE_CRON). Runs are serialized by the scheduler's job lock.
type Reconciler struct {
	db        *gorm.DB
	log       *logger.Logger
	hydration repos.HydrationJobRepo
	execution repos.ExecutionJobRepo
	audit     AuditRecorder
}

func NewReconciler(
	db *gorm.DB,
	baseLog *logger.Logger,
	hydration repos.HydrationJobRepo,
	execution repos.ExecutionJobRepo,
	audit AuditRecorder,
) *Reconciler {
	return &Reconciler{
		db:        db,
		log:       baseLog.With("component", "Reconciler"),
		hydration: hydration,
		execution: execution,
		audit:     audit,
	}
}

// RunOnce scans content-ready roots and flips their execution jobs. Safe to
// repeat: the conditional completion update makes each flip idempotent.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	roots, err := r.hydration.ListContentReadyRoots(ctx, nil, 100)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, root := range roots {
		execID, ok := executionJobIDFromPayload(root.Payload)
		if !ok {
			r.log.Warn("Content-ready root has no execution_job_id", "root_job_id", root.ID)
			continue
		}
		affected, err := r.execution.MarkCompletedIfNotTerminal(ctx, nil, execID)
		if err != nil {
			r.log.Warn("Reconciler failed to complete execution job", "execution_job_id", execID, "error", err)
			continue
		}
		if affected == 0 {
			continue
		}
		closed++
		telemetry.ReconcilerClosed.Inc()
		id := execID
		r.audit.Record(ctx, nil, types.AuditCompleted, "EXECUTION_JOB", &id, nil, map[string]any{"root_job_id": root.ID, "via": "reconciler"})
		r.log.Info("Execution job reconciled to completed", "execution_job_id", execID, "root_job_id", root.ID)
	}
	return closed, nil
}

func executionJobIDFromPayload(payload []byte) (uuid.UUID, bool) {
	if len(payload) == 0 {
		return uuid.Nil, false
	}
	var m struct {
		ExecutionJobID string `json:"execution_job_id"`
	}
	if err := json.Unmarshal(payload, &m); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(m.ExecutionJobID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
