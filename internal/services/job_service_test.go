package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/brightboard/contentforge-backend/internal/queue"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/repos/testutil"
	"github.com/brightboard/contentforge-backend/internal/types"
)

func newJobService(t *testing.T) (JobService, *serviceDeps) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	deps := &serviceDeps{
		executionJob: repos.NewExecutionJobRepo(db, log),
		hydrationJob: repos.NewHydrationJobRepo(db, log),
		outbox:       repos.NewOutboxRepo(db, log),
		subjects:     repos.NewSubjectRepo(db, log),
		logs:         repos.NewJobExecutionLogRepo(db, log),
	}
	audit := NewAuditService(db, log, deps.logs)
	hydrator := NewSyllabusHydrator(log, deps.hydrationJob, deps.outbox)
	svc := NewJobService(db, log, deps.executionJob, deps.hydrationJob, deps.subjects, audit, []Hydrator{hydrator})
	return svc, deps
}

type serviceDeps struct {
	executionJob repos.ExecutionJobRepo
	hydrationJob repos.HydrationJobRepo
	outbox       repos.OutboxRepo
	subjects     repos.SubjectRepo
	logs         repos.JobExecutionLogRepo
}

func TestSubmitJobCreatesLinkedTreeAndOutbox(t *testing.T) {
	db := testutil.DB(t)
	svc, deps := newJobService(t)
	ctx := context.Background()

	subject, err := deps.subjects.Create(ctx, nil, &types.Subject{
		Board:    "CBSE",
		Grade:    8,
		Name:     "Science",
		Language: "EN",
	})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	t.Cleanup(func() {
		db.Where("id = ?", subject.ID).Delete(&types.Subject{})
	})

	res, err := svc.SubmitJob(ctx, types.HydrationSyllabus, "SUBJECT", subject.ID, map[string]any{"requested_by": "admin"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	t.Cleanup(func() {
		db.Where("id = ?", res.JobID).Delete(&types.ExecutionJob{})
		db.Where("entity_id = ?", subject.ID).Delete(&types.HydrationJob{})
		db.Where("entity_id = ?", res.JobID).Delete(&types.JobExecutionLog{})
	})

	job, err := deps.executionJob.GetByID(ctx, nil, res.JobID)
	if err != nil || job == nil {
		t.Fatalf("reload execution job: %v", err)
	}
	if job.Status != types.ExecutionPending {
		t.Fatalf("status: want=pending got=%s", job.Status)
	}
	var payload map[string]any
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	rootIDRaw, _ := payload["hydration_job_id"].(string)
	rootID, err := uuid.Parse(rootIDRaw)
	if err != nil {
		t.Fatalf("payload missing hydration_job_id: %v", err)
	}
	t.Cleanup(func() {
		db.Where("root_job_id = ?", rootID).Delete(&types.HydrationJob{})
	})

	root, err := deps.hydrationJob.GetByID(ctx, nil, rootID)
	if err != nil || root == nil {
		t.Fatalf("reload root hydration job: %v", err)
	}
	var rootPayload map[string]any
	if err := json.Unmarshal(root.Payload, &rootPayload); err != nil {
		t.Fatalf("decode root payload: %v", err)
	}
	if got := rootPayload["execution_job_id"]; got != res.JobID.String() {
		t.Fatalf("root execution_job_id: want=%s got=%v", res.JobID, got)
	}
	// Subject metadata is denormalized into the root, in canonical form.
	if got := rootPayload["board"]; got != "cbse" {
		t.Fatalf("root board: want=cbse got=%v", got)
	}
	if got := rootPayload["subject"]; got != "science" {
		t.Fatalf("root subject: want=science got=%v", got)
	}

	// The syllabus envelope landed in the outbox with the same commit.
	msgs, err := deps.outbox.ListUnsent(ctx, nil, 100)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	found := false
	for _, m := range msgs {
		var env queue.Envelope
		if json.Unmarshal(m.Payload, &env) != nil || env.Type != queue.EnvelopeSyllabus {
			continue
		}
		var body struct {
			JobID uuid.UUID `json:"job_id"`
		}
		if json.Unmarshal(env.Payload, &body) == nil && body.JobID == rootID {
			found = true
			mID := m.ID
			t.Cleanup(func() {
				db.Where("id = ?", mID).Delete(&types.OutboxMessage{})
			})
		}
	}
	if !found {
		t.Fatal("no SYLLABUS outbox message for the new root")
	}

	entries, err := deps.logs.ListByEntity(ctx, nil, "EXECUTION_JOB", res.JobID)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	enqueued := false
	for _, e := range entries {
		if e.Action == types.AuditEnqueued {
			enqueued = true
		}
	}
	if !enqueued {
		t.Fatal("submission did not record an ENQUEUED audit entry")
	}
}

func TestShortErrorTruncatesOnRuneBoundary(t *testing.T) {
	short := "LLM_TIMEOUT::request timed out"
	if got := shortError(short); got != short {
		t.Fatalf("short input changed: %q", got)
	}

	long := "PARSE_FAILED::" + strings.Repeat("é", 200)
	got := shortError(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 80 {
		t.Fatalf("truncated length: want=80 runes got=%d", n)
	}
}

func TestSubmitJobFailsClosedOnMissingSubject(t *testing.T) {
	db := testutil.DB(t)
	svc, _ := newJobService(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := svc.SubmitJob(ctx, types.HydrationSyllabus, "SUBJECT", missing, nil)
	if !errors.Is(err, ErrMetadataUnresolved) {
		t.Fatalf("want ErrMetadataUnresolved, got: %v", err)
	}

	// Fail-closed: no execution job, no hydration rows.
	var count int64
	if err := db.Model(&types.ExecutionJob{}).Where("entity_id = ?", missing).Count(&count).Error; err != nil {
		t.Fatalf("count execution jobs: %v", err)
	}
	if count != 0 {
		t.Fatalf("execution jobs for unresolved subject: want=0 got=%d", count)
	}
	if err := db.Model(&types.HydrationJob{}).Where("entity_id = ?", missing).Count(&count).Error; err != nil {
		t.Fatalf("count hydration jobs: %v", err)
	}
	if count != 0 {
		t.Fatalf("hydration jobs for unresolved subject: want=0 got=%d", count)
	}
}
