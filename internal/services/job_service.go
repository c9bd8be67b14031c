package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// ErrMetadataUnresolved blocks submission when required denormalized
// metadata cannot be resolved; creating an unrunnable job would be worse
// than refusing.
var ErrMetadataUnresolved = fmt.Errorf("required metadata could not be resolved")

type SubmitResult struct {
	JobID uuid.UUID `json:"job_id"`
}

// JobTreeNode is the admin-facing read model: one hydration job row plus
// derived flags.
type JobTreeNode struct {
	Job            *types.HydrationJob `json:"job"`
	Children       []*JobTreeNode      `json:"children"`
	IsLeaf         bool                `json:"is_leaf"`
	RetryEligible  bool                `json:"retry_eligible"`
	LastErrorShort string              `json:"last_error_short,omitempty"`
}

type JobTree struct {
	Root *JobTreeNode `json:"root"`
}

type JobService interface {
	// SubmitJob is the sole product-facing entry point for generation work.
	SubmitJob(ctx context.Context, jobType types.HydrationJobType, entityType string, entityID uuid.UUID, payload map[string]any) (*SubmitResult, error)
	GetJobTree(ctx context.Context, executionJobID uuid.UUID) (*JobTree, error)
}

type jobService struct {
	db           *gorm.DB
	log          *logger.Logger
	executionJob repos.ExecutionJobRepo
	hydrationJob repos.HydrationJobRepo
	subject      repos.SubjectRepo
	audit        AuditService
	hydrators    map[types.HydrationJobType]Hydrator
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	executionJob repos.ExecutionJobRepo,
	hydrationJob repos.HydrationJobRepo,
	subject repos.SubjectRepo,
	audit AuditService,
	hydrators []Hydrator,
) JobService {
	byType := make(map[types.HydrationJobType]Hydrator, len(hydrators))
	for _, h := range hydrators {
		byType[h.JobType()] = h
	}
	return &jobService{
		db:           db,
		log:          baseLog.With("service", "JobService"),
		executionJob: executionJob,
		hydrationJob: hydrationJob,
		subject:      subject,
		audit:        audit,
		hydrators:    byType,
	}
}

func (s *jobService) SubmitJob(ctx context.Context, jobType types.HydrationJobType, entityType string, entityID uuid.UUID, payload map[string]any) (*SubmitResult, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("unknown job_type %q", jobType)
	}
	hydrator, ok := s.hydrators[jobType]
	if !ok {
		return nil, fmt.Errorf("no hydrator registered for job_type %q", jobType)
	}
	if entityType == "" || entityID == uuid.Nil {
		return nil, fmt.Errorf("missing entity reference")
	}
	if payload == nil {
		payload = map[string]any{}
	}

	// Resolve denormalized metadata before any row exists. Missing metadata
	// is a hard precondition failure, not a job that fails later.
	req := HydrateRequest{EntityType: entityType, EntityID: entityID, Payload: payload}
	if entityType == "SUBJECT" {
		subject, err := s.subject.GetByID(ctx, nil, entityID)
		if err != nil {
			return nil, fmt.Errorf("resolve subject: %w", err)
		}
		if subject == nil {
			s.log.Warn("Submission skipped, subject not found", "entity_id", entityID)
			return nil, fmt.Errorf("%w: subject %s not found", ErrMetadataUnresolved, entityID)
		}
		req.Board = subject.Board
		req.Grade = subject.Grade
		req.Subject = subject.Name
		req.Language = subject.Language
	}
	if lang, ok := payload["language"].(string); ok && lang != "" {
		req.Language = lang
	}

	var job *types.ExecutionJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		job, err = s.executionJob.Create(ctx, tx, &types.ExecutionJob{
			JobType:    jobType,
			EntityType: entityType,
			EntityID:   entityID,
			Payload:    datatypes.JSON(payloadJSON),
			Status:     types.ExecutionPending,
		})
		if err != nil {
			return fmt.Errorf("create execution job: %w", err)
		}

		req.ExecutionJobID = job.ID
		rootJobID, err := hydrator.Hydrate(ctx, tx, req)
		if err != nil {
			return fmt.Errorf("hydrate: %w", err)
		}

		payload["hydration_job_id"] = rootJobID.String()
		augmented, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := s.executionJob.UpdatePayload(ctx, tx, job.ID, datatypes.JSON(augmented)); err != nil {
			return fmt.Errorf("write back hydration_job_id: %w", err)
		}
		job.Payload = datatypes.JSON(augmented)
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.JobsSubmitted.Inc()
	jobID := job.ID
	s.audit.Record(ctx, nil, types.AuditEnqueued, "EXECUTION_JOB", &jobID, nil, map[string]any{
		"job_type":    jobType,
		"entity_type": entityType,
		"entity_id":   entityID,
	})
	s.log.Info("Execution job submitted", "job_id", job.ID, "job_type", jobType, "entity_id", entityID)
	return &SubmitResult{JobID: job.ID}, nil
}

func (s *jobService) GetJobTree(ctx context.Context, executionJobID uuid.UUID) (*JobTree, error) {
	job, err := s.executionJob.GetByID(ctx, nil, executionJobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("execution job %s not found", executionJobID)
	}
	var payload map[string]any
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode execution job payload: %w", err)
		}
	}
	rootRaw, _ := payload["hydration_job_id"].(string)
	rootJobID, err := uuid.Parse(rootRaw)
	if err != nil {
		return nil, fmt.Errorf("execution job %s has no hydration tree", executionJobID)
	}

	rows, err := s.hydrationJob.ListByRoot(ctx, nil, rootJobID)
	if err != nil {
		return nil, err
	}
	nodes := make(map[uuid.UUID]*JobTreeNode, len(rows))
	for _, row := range rows {
		nodes[row.ID] = &JobTreeNode{Job: row, Children: []*JobTreeNode{}}
	}
	var root *JobTreeNode
	for _, row := range rows {
		node := nodes[row.ID]
		if row.ParentJobID == nil {
			root = node
			continue
		}
		if parent, ok := nodes[*row.ParentJobID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	if root == nil {
		return nil, fmt.Errorf("hydration root %s not found", rootJobID)
	}
	for _, node := range nodes {
		node.IsLeaf = len(node.Children) == 0
		node.RetryEligible = node.IsLeaf &&
			node.Job.Status == types.HydrationFailed &&
			node.Job.Attempts < node.Job.MaxAttempts
		node.LastErrorShort = shortError(node.Job.LastError)
	}
	return &JobTree{Root: root}, nil
}

// shortError keeps only the code and the first few words for list views.
func shortError(lastError string) string {
	const max = 80
	runes := []rune(lastError)
	if len(runes) > max {
		return string(runes[:max])
	}
	return lastError
}
