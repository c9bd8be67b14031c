package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/queue"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/services"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// HydrationWork holds the work functions the queue worker hands to the
// runner. Each runs inside the runner's transaction: generated content,
// child rows, counters and outbox messages commit together.
type HydrationWork struct {
	log       *logger.Logger
	hydration repos.HydrationJobRepo
	outbox    repos.OutboxRepo
	content   repos.GeneratedContentRepo
	generator services.GenerationClient
}

func NewHydrationWork(
	baseLog *logger.Logger,
	hydration repos.HydrationJobRepo,
	outbox repos.OutboxRepo,
	content repos.GeneratedContentRepo,
	generator services.GenerationClient,
) *HydrationWork {
	return &HydrationWork{
		log:       baseLog.With("component", "HydrationWork"),
		hydration: hydration,
		outbox:    outbox,
		content:   content,
		generator: generator,
	}
}

// jobMeta is the denormalized curriculum context carried on every hydration
// job payload. Submission resolved it once; workers never join back.
type jobMeta struct {
	ExecutionJobID string `json:"execution_job_id,omitempty"`
	Board          string `json:"board"`
	Grade          int    `json:"grade"`
	Subject        string `json:"subject"`
	Chapter        string `json:"chapter,omitempty"`
	Topic          string `json:"topic,omitempty"`
	Language       string `json:"language,omitempty"`
}

func decodeMeta(payload []byte) (jobMeta, error) {
	var m jobMeta
	if len(payload) == 0 {
		return m, fmt.Errorf("job payload is empty")
	}
	if err := json.Unmarshal(payload, &m); err != nil {
		return m, fmt.Errorf("parse job payload: %w", err)
	}
	if m.Board == "" || m.Subject == "" {
		return m, fmt.Errorf("job payload missing board/subject metadata")
	}
	return m, nil
}

type syllabusTopic struct {
	Title string `json:"title"`
}

type syllabusChapter struct {
	Title  string          `json:"title"`
	Topics []syllabusTopic `json:"topics"`
}

type syllabusContent struct {
	Chapters []syllabusChapter `json:"chapters"`
}

// Syllabus generates the chapter/topic breakdown and fans the tree out:
// one notes job and one questions job per topic, plus the assemble job,
// with expected counters set on the root before any leaf can run.
func (w *HydrationWork) Syllabus() WorkFn {
	return func(jc *JobContext) error {
		meta, err := decodeMeta(jc.Job.Payload)
		if err != nil {
			return err
		}
		res, err := w.generator.Generate(jc.Ctx, services.GenerationRequest{
			Kind:     "syllabus",
			Board:    meta.Board,
			Grade:    meta.Grade,
			Subject:  meta.Subject,
			Language: meta.Language,
		})
		if err != nil {
			return err
		}
		var syllabus syllabusContent
		if err := json.Unmarshal(res.Content, &syllabus); err != nil {
			return fmt.Errorf("parse syllabus content: %w", err)
		}
		topics := 0
		for _, ch := range syllabus.Chapters {
			topics += len(ch.Topics)
		}
		if len(syllabus.Chapters) == 0 || topics == 0 {
			return fmt.Errorf("validation failed: syllabus has no chapters or topics")
		}

		if _, err := w.content.Create(jc.Ctx, jc.Tx, &types.GeneratedContent{
			HydrationJobID: jc.Job.ID,
			Kind:           types.HydrationSyllabus,
			EntityType:     jc.Job.EntityType,
			EntityID:       jc.Job.EntityID,
			Content:        datatypes.JSON(res.Content),
		}); err != nil {
			return fmt.Errorf("persist syllabus content: %w", err)
		}

		var leaves []*types.HydrationJob
		var envelopes []queue.Envelope
		for _, ch := range syllabus.Chapters {
			for _, tp := range ch.Topics {
				topicID := uuid.New()
				for _, leafType := range []types.HydrationJobType{types.HydrationNotes, types.HydrationQuestions} {
					leaf, env, err := w.buildLeaf(jc.Job, leafType, meta, ch.Title, tp.Title, topicID)
					if err != nil {
						return err
					}
					leaves = append(leaves, leaf)
					envelopes = append(envelopes, env)
				}
			}
		}
		assemble, err := w.buildAssemble(jc.Job, meta)
		if err != nil {
			return err
		}
		leaves = append(leaves, assemble)

		if _, err := w.hydration.Create(jc.Ctx, jc.Tx, leaves); err != nil {
			return fmt.Errorf("create leaf jobs: %w", err)
		}
		if err := w.hydration.UpdateFields(jc.Ctx, jc.Tx, jc.Job.ID, map[string]interface{}{
			"expected_children":  len(leaves),
			"expected_notes":     topics,
			"expected_questions": topics,
		}); err != nil {
			return fmt.Errorf("set fan-out counters: %w", err)
		}
		for _, env := range envelopes {
			if err := w.enqueue(jc, env); err != nil {
				return err
			}
		}
		return jc.Progress.AddCost(jc.Ctx, res.InputTokens, res.OutputTokens, 0)
	}
}

func (w *HydrationWork) buildLeaf(root *types.HydrationJob, leafType types.HydrationJobType, meta jobMeta, chapter, topic string, topicID uuid.UUID) (*types.HydrationJob, queue.Envelope, error) {
	leafID := uuid.New()
	payload, err := json.Marshal(jobMeta{
		Board:    meta.Board,
		Grade:    meta.Grade,
		Subject:  meta.Subject,
		Chapter:  chapter,
		Topic:    topic,
		Language: meta.Language,
	})
	if err != nil {
		return nil, queue.Envelope{}, err
	}
	parentID := root.ID
	leaf := &types.HydrationJob{
		ID:             leafID,
		JobType:        leafType,
		ParentJobID:    &parentID,
		RootJobID:      root.RootJobID,
		HierarchyLevel: root.HierarchyLevel + 1,
		EntityType:     "TOPIC",
		EntityID:       topicID,
		Payload:        datatypes.JSON(payload),
		Status:         types.HydrationPending,
	}
	envType := queue.EnvelopeNotes
	if leafType == types.HydrationQuestions {
		envType = queue.EnvelopeQuestions
	}
	envPayload, err := json.Marshal(map[string]any{"job_id": leafID})
	if err != nil {
		return nil, queue.Envelope{}, err
	}
	return leaf, queue.Envelope{Type: envType, Payload: envPayload}, nil
}

func (w *HydrationWork) buildAssemble(root *types.HydrationJob, meta jobMeta) (*types.HydrationJob, error) {
	payload, err := json.Marshal(jobMeta{
		Board:    meta.Board,
		Grade:    meta.Grade,
		Subject:  meta.Subject,
		Language: meta.Language,
	})
	if err != nil {
		return nil, err
	}
	parentID := root.ID
	return &types.HydrationJob{
		ID:             uuid.New(),
		JobType:        types.HydrationAssemble,
		ParentJobID:    &parentID,
		RootJobID:      root.RootJobID,
		HierarchyLevel: root.HierarchyLevel + 1,
		EntityType:     root.EntityType,
		EntityID:       root.EntityID,
		Payload:        datatypes.JSON(payload),
		Status:         types.HydrationPending,
	}, nil
}

// Notes generates study notes for one topic.
func (w *HydrationWork) Notes() WorkFn {
	return w.leafWorkFn("notes", types.HydrationNotes, repos.CounterNotes)
}

// Questions generates practice questions for one topic.
func (w *HydrationWork) Questions() WorkFn {
	return w.leafWorkFn("questions", types.HydrationQuestions, repos.CounterQuestions)
}

func (w *HydrationWork) leafWorkFn(kind string, jobType types.HydrationJobType, counter string) WorkFn {
	return func(jc *JobContext) error {
		meta, err := decodeMeta(jc.Job.Payload)
		if err != nil {
			return err
		}
		res, err := w.generator.Generate(jc.Ctx, services.GenerationRequest{
			Kind:     kind,
			Board:    meta.Board,
			Grade:    meta.Grade,
			Subject:  meta.Subject,
			Chapter:  meta.Chapter,
			Topic:    meta.Topic,
			Language: meta.Language,
		})
		if err != nil {
			return err
		}
		if _, err := w.content.Create(jc.Ctx, jc.Tx, &types.GeneratedContent{
			HydrationJobID: jc.Job.ID,
			Kind:           jobType,
			EntityType:     jc.Job.EntityType,
			EntityID:       jc.Job.EntityID,
			Content:        datatypes.JSON(res.Content),
		}); err != nil {
			return fmt.Errorf("persist %s content: %w", kind, err)
		}
		if err := jc.Progress.AddCost(jc.Ctx, res.InputTokens, res.OutputTokens, 0); err != nil {
			return err
		}
		if err := jc.Progress.IncrementParent(jc.Ctx, counter); err != nil {
			return err
		}
		if err := jc.Progress.IncrementParent(jc.Ctx, repos.CounterChildren); err != nil {
			return err
		}
		return w.maybeEnqueueAssemble(jc)
	}
}

// maybeEnqueueAssemble fires the assemble job once every notes and questions
// leaf has completed. Two last leaves racing can both enqueue it; the claim
// protocol turns the duplicate into a no-op.
func (w *HydrationWork) maybeEnqueueAssemble(jc *JobContext) error {
	root, err := w.hydration.GetByID(jc.Ctx, jc.Tx, jc.Job.RootJobID)
	if err != nil {
		return err
	}
	if root == nil {
		return fmt.Errorf("root job %s not found", jc.Job.RootJobID)
	}
	if root.ExpectedNotes == 0 ||
		root.CompletedNotes < root.ExpectedNotes ||
		root.CompletedQuestions < root.ExpectedQuestions {
		return nil
	}
	assemble, err := w.hydration.GetByRootAndType(jc.Ctx, jc.Tx, root.ID, types.HydrationAssemble)
	if err != nil {
		return err
	}
	if assemble == nil {
		return fmt.Errorf("assemble job missing for root %s", root.ID)
	}
	envPayload, err := json.Marshal(map[string]any{"job_id": assemble.ID})
	if err != nil {
		return err
	}
	return w.enqueue(jc, queue.Envelope{Type: queue.EnvelopeAssembleTest, Payload: envPayload})
}

// Assemble builds the final test once the tree's leaves are done and marks
// the root content-ready for the reconciler.
func (w *HydrationWork) Assemble() WorkFn {
	return func(jc *JobContext) error {
		meta, err := decodeMeta(jc.Job.Payload)
		if err != nil {
			return err
		}
		root, err := w.hydration.GetByID(jc.Ctx, jc.Tx, jc.Job.RootJobID)
		if err != nil {
			return err
		}
		if root == nil {
			return fmt.Errorf("root job %s not found", jc.Job.RootJobID)
		}
		if root.CompletedNotes < root.ExpectedNotes || root.CompletedQuestions < root.ExpectedQuestions {
			return fmt.Errorf("dependency missing: notes %d/%d questions %d/%d",
				root.CompletedNotes, root.ExpectedNotes, root.CompletedQuestions, root.ExpectedQuestions)
		}
		res, err := w.generator.Generate(jc.Ctx, services.GenerationRequest{
			Kind:     "assemble",
			Board:    meta.Board,
			Grade:    meta.Grade,
			Subject:  meta.Subject,
			Language: meta.Language,
		})
		if err != nil {
			return err
		}
		if _, err := w.content.Create(jc.Ctx, jc.Tx, &types.GeneratedContent{
			HydrationJobID: jc.Job.ID,
			Kind:           types.HydrationAssemble,
			EntityType:     jc.Job.EntityType,
			EntityID:       jc.Job.EntityID,
			Content:        datatypes.JSON(res.Content),
		}); err != nil {
			return fmt.Errorf("persist assembled test: %w", err)
		}
		if err := jc.Progress.AddCost(jc.Ctx, res.InputTokens, res.OutputTokens, 0); err != nil {
			return err
		}
		if err := jc.Progress.IncrementParent(jc.Ctx, repos.CounterChildren); err != nil {
			return err
		}
		return w.hydration.SetContentReady(jc.Ctx, jc.Tx, root.ID)
	}
}

func (w *HydrationWork) enqueue(jc *JobContext, env queue.Envelope) error {
	envJSON, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if _, err := w.outbox.Create(jc.Ctx, jc.Tx, &types.OutboxMessage{
		Queue:   queue.QueueHydration,
		Payload: datatypes.JSON(envJSON),
	}); err != nil {
		return fmt.Errorf("enqueue %s envelope: %w", env.Type, err)
	}
	return nil
}
