package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/queue"
)

// QueueWorker is the consumption loop of the worker process: it blocks on the
// hydration and regeneration queues, decodes envelopes and routes them. A bad
// message is logged and dropped; the loop never halts on a single failure.
type QueueWorker struct {
	log    *logger.Logger
	client queue.Client
	runner *Runner
	work   *HydrationWork
	regen  *RegenerationWorker
}

func NewQueueWorker(baseLog *logger.Logger, client queue.Client, runner *Runner, work *HydrationWork, regen *RegenerationWorker) *QueueWorker {
	return &QueueWorker{
		log:    baseLog.With("component", "QueueWorker"),
		client: client,
		runner: runner,
		work:   work,
		regen:  regen,
	}
}

// Start consumes until ctx is cancelled.
func (w *QueueWorker) Start(ctx context.Context) error {
	queues := []string{queue.QueueHydration, queue.QueueRegeneration}
	w.log.Info("queue worker started", "queues", queues)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("queue worker stopping")
			return ctx.Err()
		default:
		}
		name, raw, err := w.client.Pop(ctx, queues, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error("queue pop failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if name == "" {
			continue
		}
		if err := w.handle(ctx, raw); err != nil {
			w.log.Error("message handling failed", "queue", name, "error", err)
		}
	}
}

type envelopeBody struct {
	JobID uuid.UUID `json:"job_id"`
}

func (w *QueueWorker) handle(ctx context.Context, raw []byte) error {
	var env queue.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	var body envelopeBody
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	if body.JobID == uuid.Nil {
		return fmt.Errorf("%s envelope missing job_id", env.Type)
	}

	switch env.Type {
	case queue.EnvelopeSyllabus:
		_, err := w.runner.Run(ctx, body.JobID, w.work.Syllabus())
		return err
	case queue.EnvelopeNotes:
		_, err := w.runner.Run(ctx, body.JobID, w.work.Notes())
		return err
	case queue.EnvelopeQuestions:
		_, err := w.runner.Run(ctx, body.JobID, w.work.Questions())
		return err
	case queue.EnvelopeAssembleTest:
		_, err := w.runner.Run(ctx, body.JobID, w.work.Assemble())
		return err
	case queue.EnvelopeRegenerate:
		_, err := w.regen.ProcessJob(ctx, body.JobID)
		return err
	default:
		return fmt.Errorf("unknown envelope type %q", env.Type)
	}
}
