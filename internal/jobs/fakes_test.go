package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/failure"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/services"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// In-memory fakes for the unit tests in this package. They ignore the tx
// argument: transactional behavior is covered by the integration tests.

type fakeHydrationRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.HydrationJob
}

func newFakeHydrationRepo(seed ...*types.HydrationJob) *fakeHydrationRepo {
	r := &fakeHydrationRepo{jobs: make(map[uuid.UUID]*types.HydrationJob)}
	for _, j := range seed {
		if j.RootJobID == uuid.Nil && j.ParentJobID == nil {
			j.RootJobID = j.ID
		}
		r.jobs[j.ID] = j
	}
	return r
}

func (r *fakeHydrationRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.HydrationJob) ([]*types.HydrationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		if j.Status == "" {
			j.Status = types.HydrationPending
		}
		if j.MaxAttempts == 0 {
			j.MaxAttempts = 3
		}
		r.jobs[j.ID] = j
	}
	return jobs, nil
}

func (r *fakeHydrationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HydrationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *fakeHydrationRepo) Claim(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status != types.HydrationPending {
		return false, nil
	}
	j.Status = types.HydrationRunning
	j.Attempts++
	return true, nil
}

func (r *fakeHydrationRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok && j.Status == types.HydrationRunning {
		j.Status = types.HydrationCompleted
	}
	return nil
}

func (r *fakeHydrationRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok && j.Status == types.HydrationRunning {
		j.Status = types.HydrationFailed
		j.LastError = lastError
	}
	return nil
}

func (r *fakeHydrationRepo) SetContentReady(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.ContentReady = true
	}
	return nil
}

func (r *fakeHydrationRepo) SetLastError(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.LastError = lastError
	}
	return nil
}

func (r *fakeHydrationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	for k, v := range updates {
		n, ok := v.(int)
		if !ok {
			continue
		}
		switch k {
		case "expected_children":
			j.ExpectedChildren = n
		case "expected_notes":
			j.ExpectedNotes = n
		case "expected_questions":
			j.ExpectedQuestions = n
		}
	}
	return nil
}

func (r *fakeHydrationRepo) IncrementCounter(ctx context.Context, tx *gorm.DB, id uuid.UUID, counter string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	switch counter {
	case repos.CounterChildren:
		j.CompletedChildren++
	case repos.CounterNotes:
		j.CompletedNotes++
	case repos.CounterQuestions:
		j.CompletedQuestions++
	default:
		return fmt.Errorf("unknown counter %q", counter)
	}
	return nil
}

func (r *fakeHydrationRepo) ListByRoot(ctx context.Context, tx *gorm.DB, rootJobID uuid.UUID) ([]*types.HydrationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.HydrationJob
	for _, j := range r.jobs {
		if j.RootJobID == rootJobID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeHydrationRepo) GetByRootAndType(ctx context.Context, tx *gorm.DB, rootJobID uuid.UUID, jobType types.HydrationJobType) (*types.HydrationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.RootJobID == rootJobID && j.JobType == jobType {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeHydrationRepo) ListContentReadyRoots(ctx context.Context, tx *gorm.DB, limit int) ([]*types.HydrationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.HydrationJob
	for _, j := range r.jobs {
		if j.ParentJobID == nil && j.ContentReady {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeHydrationRepo) AddCost(ctx context.Context, tx *gorm.DB, id uuid.UUID, inputTokens, outputTokens, costCents int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.InputTokens += inputTokens
		j.OutputTokens += outputTokens
		j.CostCents += costCents
	}
	return nil
}

func (r *fakeHydrationRepo) byType(jobType types.HydrationJobType) []*types.HydrationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.HydrationJob
	for _, j := range r.jobs {
		if j.JobType == jobType {
			out = append(out, j)
		}
	}
	return out
}

type fakeOutboxRepo struct {
	mu   sync.Mutex
	rows []*types.OutboxMessage
}

func (r *fakeOutboxRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.OutboxMessage) (*types.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	r.rows = append(r.rows, msg)
	return msg, nil
}

func (r *fakeOutboxRepo) ListUnsent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.OutboxMessage
	for _, m := range r.rows {
		if m.SentAt == nil {
			out = append(out, m)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkSent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.ID == id {
			now := time.Now()
			m.SentAt = &now
			m.Attempts++
		}
	}
	return nil
}

func (r *fakeOutboxRepo) IncrementAttempts(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.ID == id {
			m.Attempts++
		}
	}
	return nil
}

type fakeContentRepo struct {
	mu   sync.Mutex
	rows []*types.GeneratedContent
}

func (r *fakeContentRepo) Create(ctx context.Context, tx *gorm.DB, content *types.GeneratedContent) (*types.GeneratedContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	r.rows = append(r.rows, content)
	return content, nil
}

func (r *fakeContentRepo) ListByJob(ctx context.Context, tx *gorm.DB, hydrationJobID uuid.UUID) ([]*types.GeneratedContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.GeneratedContent
	for _, c := range r.rows {
		if c.HydrationJobID == hydrationJobID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []services.GenerationRequest
	content  map[string][]byte
	err      error
}

func (g *fakeGenerator) Generate(ctx context.Context, req services.GenerationRequest) (*services.GenerationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	content, ok := g.content[req.Kind]
	if !ok {
		content = []byte(`{"ok":true}`)
	}
	return &services.GenerationResult{Content: content, InputTokens: 10, OutputTokens: 20}, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *fakeAudit) Record(ctx context.Context, tx *gorm.DB, action string, entityType string, entityID *uuid.UUID, actorID *uuid.UUID, metadata map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

type fakeQueueClient struct {
	mu     sync.Mutex
	pushed map[string][][]byte
	err    error
}

func (q *fakeQueueClient) Push(ctx context.Context, queueName string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if q.pushed == nil {
		q.pushed = make(map[string][][]byte)
	}
	q.pushed[queueName] = append(q.pushed[queueName], payload)
	return nil
}

func (q *fakeQueueClient) Pop(ctx context.Context, queues []string, timeout time.Duration) (string, []byte, error) {
	return "", nil, nil
}

func (q *fakeQueueClient) Close() error { return nil }

// fakeProgress feeds the counter walk into the fake repo, mimicking the
// runner's reporter closely enough for workFn tests.
type fakeProgress struct {
	repo *fakeHydrationRepo
	job  *types.HydrationJob
}

func (p *fakeProgress) IncrementParent(ctx context.Context, counter string) error {
	parentID := p.job.ParentJobID
	for parentID != nil {
		if err := p.repo.IncrementCounter(ctx, nil, *parentID, counter); err != nil {
			return err
		}
		parent, err := p.repo.GetByID(ctx, nil, *parentID)
		if err != nil || parent == nil {
			return err
		}
		parentID = parent.ParentJobID
	}
	return nil
}

func (p *fakeProgress) ReportChildFailure(ctx context.Context, childCode failure.Code) error {
	return nil
}

func (p *fakeProgress) AddCost(ctx context.Context, inputTokens, outputTokens, costCents int) error {
	return p.repo.AddCost(ctx, nil, p.job.ID, inputTokens, outputTokens, costCents)
}
