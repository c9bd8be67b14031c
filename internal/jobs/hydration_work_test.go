package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/brightboard/contentforge-backend/internal/queue"
	"github.com/brightboard/contentforge-backend/internal/repos/testutil"
	"github.com/brightboard/contentforge-backend/internal/types"
)

func newRootJob(t *testing.T) *types.HydrationJob {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"execution_job_id": uuid.New().String(),
		"board":            "cbse",
		"grade":            8,
		"subject":          "science",
		"language":         "en",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	id := uuid.New()
	return &types.HydrationJob{
		ID:         id,
		JobType:    types.HydrationSyllabus,
		RootJobID:  id,
		EntityType: "SUBJECT",
		EntityID:   uuid.New(),
		Payload:    datatypes.JSON(payload),
		Status:     types.HydrationRunning,
		Attempts:   1,
	}
}

const twoTopicSyllabus = `{
	"chapters": [
		{"title": "Motion", "topics": [{"title": "Speed"}]},
		{"title": "Light", "topics": [{"title": "Reflection"}]}
	]
}`

func TestSyllabusFansOutLeavesAndAssemble(t *testing.T) {
	root := newRootJob(t)
	hydration := newFakeHydrationRepo(root)
	outbox := &fakeOutboxRepo{}
	content := &fakeContentRepo{}
	generator := &fakeGenerator{content: map[string][]byte{"syllabus": []byte(twoTopicSyllabus)}}
	work := NewHydrationWork(testutil.Logger(t), hydration, outbox, content, generator)

	jc := &JobContext{
		Ctx:      context.Background(),
		Job:      root,
		Progress: &fakeProgress{repo: hydration, job: root},
	}
	if err := work.Syllabus()(jc); err != nil {
		t.Fatalf("syllabus workFn: %v", err)
	}

	// Two topics: 2 notes + 2 questions + 1 assemble.
	notes := hydration.byType(types.HydrationNotes)
	questions := hydration.byType(types.HydrationQuestions)
	assembles := hydration.byType(types.HydrationAssemble)
	if len(notes) != 2 || len(questions) != 2 || len(assembles) != 1 {
		t.Fatalf("leaf fan-out: want notes=2 questions=2 assemble=1 got notes=%d questions=%d assemble=%d",
			len(notes), len(questions), len(assembles))
	}
	for _, leaf := range append(notes, questions...) {
		if leaf.ParentJobID == nil || *leaf.ParentJobID != root.ID {
			t.Fatalf("leaf %s not parented to root", leaf.ID)
		}
		if leaf.RootJobID != root.ID {
			t.Fatalf("leaf %s root: want=%s got=%s", leaf.ID, root.ID, leaf.RootJobID)
		}
		if leaf.HierarchyLevel != 1 {
			t.Fatalf("leaf %s level: want=1 got=%d", leaf.ID, leaf.HierarchyLevel)
		}
	}

	reloaded, err := hydration.GetByID(context.Background(), nil, root.ID)
	if err != nil {
		t.Fatalf("reload root: %v", err)
	}
	if reloaded.ExpectedChildren != 5 || reloaded.ExpectedNotes != 2 || reloaded.ExpectedQuestions != 2 {
		t.Fatalf("root counters: want children=5 notes=2 questions=2 got children=%d notes=%d questions=%d",
			reloaded.ExpectedChildren, reloaded.ExpectedNotes, reloaded.ExpectedQuestions)
	}

	// Only the leaves get queue messages up front; assemble fires later.
	if len(outbox.rows) != 4 {
		t.Fatalf("outbox rows: want=4 got=%d", len(outbox.rows))
	}
	for _, row := range outbox.rows {
		var env queue.Envelope
		if err := json.Unmarshal(row.Payload, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Type == queue.EnvelopeAssembleTest {
			t.Fatalf("assemble enqueued during fan-out")
		}
	}
	if len(content.rows) != 1 {
		t.Fatalf("syllabus content rows: want=1 got=%d", len(content.rows))
	}
}

func TestSyllabusRejectsEmptyBreakdown(t *testing.T) {
	root := newRootJob(t)
	hydration := newFakeHydrationRepo(root)
	generator := &fakeGenerator{content: map[string][]byte{"syllabus": []byte(`{"chapters": []}`)}}
	work := NewHydrationWork(testutil.Logger(t), hydration, &fakeOutboxRepo{}, &fakeContentRepo{}, generator)

	jc := &JobContext{
		Ctx:      context.Background(),
		Job:      root,
		Progress: &fakeProgress{repo: hydration, job: root},
	}
	err := work.Syllabus()(jc)
	if err == nil {
		t.Fatal("expected error for empty syllabus")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("error should classify as validation failure, got: %v", err)
	}
}

func TestLastLeafEnqueuesAssemble(t *testing.T) {
	root := newRootJob(t)
	root.ExpectedChildren = 3
	root.ExpectedNotes = 1
	root.ExpectedQuestions = 1
	rootID := root.ID

	leafPayload, _ := json.Marshal(map[string]any{
		"board": "cbse", "grade": 8, "subject": "science", "chapter": "Motion", "topic": "Speed",
	})
	notesLeaf := &types.HydrationJob{
		ID: uuid.New(), JobType: types.HydrationNotes, ParentJobID: &rootID, RootJobID: rootID,
		HierarchyLevel: 1, EntityType: "TOPIC", EntityID: uuid.New(),
		Payload: datatypes.JSON(leafPayload), Status: types.HydrationRunning,
	}
	questionsLeaf := &types.HydrationJob{
		ID: uuid.New(), JobType: types.HydrationQuestions, ParentJobID: &rootID, RootJobID: rootID,
		HierarchyLevel: 1, EntityType: "TOPIC", EntityID: notesLeaf.EntityID,
		Payload: datatypes.JSON(leafPayload), Status: types.HydrationRunning,
	}
	assembleJob := &types.HydrationJob{
		ID: uuid.New(), JobType: types.HydrationAssemble, ParentJobID: &rootID, RootJobID: rootID,
		HierarchyLevel: 1, EntityType: root.EntityType, EntityID: root.EntityID,
		Payload: root.Payload, Status: types.HydrationPending,
	}
	hydration := newFakeHydrationRepo(root, notesLeaf, questionsLeaf, assembleJob)
	outbox := &fakeOutboxRepo{}
	work := NewHydrationWork(testutil.Logger(t), hydration, outbox, &fakeContentRepo{}, &fakeGenerator{})

	run := func(job *types.HydrationJob, fn WorkFn) {
		t.Helper()
		jc := &JobContext{
			Ctx:      context.Background(),
			Job:      job,
			Progress: &fakeProgress{repo: hydration, job: job},
		}
		if err := fn(jc); err != nil {
			t.Fatalf("workFn for %s: %v", job.JobType, err)
		}
	}

	run(notesLeaf, work.Notes())
	if len(outbox.rows) != 0 {
		t.Fatalf("assemble enqueued before questions completed")
	}

	run(questionsLeaf, work.Questions())
	if len(outbox.rows) != 1 {
		t.Fatalf("assemble envelopes: want=1 got=%d", len(outbox.rows))
	}
	var env queue.Envelope
	if err := json.Unmarshal(outbox.rows[0].Payload, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != queue.EnvelopeAssembleTest {
		t.Fatalf("envelope type: want=%s got=%s", queue.EnvelopeAssembleTest, env.Type)
	}

	reloaded, _ := hydration.GetByID(context.Background(), nil, rootID)
	if reloaded.CompletedNotes != 1 || reloaded.CompletedQuestions != 1 || reloaded.CompletedChildren != 2 {
		t.Fatalf("root counters after leaves: notes=%d questions=%d children=%d",
			reloaded.CompletedNotes, reloaded.CompletedQuestions, reloaded.CompletedChildren)
	}
}

func TestAssembleRequiresCompletedLeaves(t *testing.T) {
	root := newRootJob(t)
	root.ExpectedNotes = 2
	root.ExpectedQuestions = 2
	root.CompletedNotes = 1
	rootID := root.ID
	assembleJob := &types.HydrationJob{
		ID: uuid.New(), JobType: types.HydrationAssemble, ParentJobID: &rootID, RootJobID: rootID,
		HierarchyLevel: 1, EntityType: root.EntityType, EntityID: root.EntityID,
		Payload: root.Payload, Status: types.HydrationRunning,
	}
	hydration := newFakeHydrationRepo(root, assembleJob)
	work := NewHydrationWork(testutil.Logger(t), hydration, &fakeOutboxRepo{}, &fakeContentRepo{}, &fakeGenerator{})

	jc := &JobContext{
		Ctx:      context.Background(),
		Job:      assembleJob,
		Progress: &fakeProgress{repo: hydration, job: assembleJob},
	}
	err := work.Assemble()(jc)
	if err == nil {
		t.Fatal("expected error when leaves incomplete")
	}
	if !strings.Contains(err.Error(), "dependency missing") {
		t.Fatalf("error should classify as missing dependency, got: %v", err)
	}
}

func TestAssembleMarksRootContentReady(t *testing.T) {
	root := newRootJob(t)
	root.ExpectedNotes = 1
	root.ExpectedQuestions = 1
	root.CompletedNotes = 1
	root.CompletedQuestions = 1
	rootID := root.ID
	assembleJob := &types.HydrationJob{
		ID: uuid.New(), JobType: types.HydrationAssemble, ParentJobID: &rootID, RootJobID: rootID,
		HierarchyLevel: 1, EntityType: root.EntityType, EntityID: root.EntityID,
		Payload: root.Payload, Status: types.HydrationRunning,
	}
	hydration := newFakeHydrationRepo(root, assembleJob)
	content := &fakeContentRepo{}
	work := NewHydrationWork(testutil.Logger(t), hydration, &fakeOutboxRepo{}, content, &fakeGenerator{})

	jc := &JobContext{
		Ctx:      context.Background(),
		Job:      assembleJob,
		Progress: &fakeProgress{repo: hydration, job: assembleJob},
	}
	if err := work.Assemble()(jc); err != nil {
		t.Fatalf("assemble workFn: %v", err)
	}

	reloaded, _ := hydration.GetByID(context.Background(), nil, rootID)
	if !reloaded.ContentReady {
		t.Fatal("root not marked content-ready")
	}
	if len(content.rows) != 1 {
		t.Fatalf("assembled content rows: want=1 got=%d", len(content.rows))
	}
}
