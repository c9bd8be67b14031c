package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/brightboard/contentforge-backend/internal/queue"
	"github.com/brightboard/contentforge-backend/internal/repos/testutil"
	"github.com/brightboard/contentforge-backend/internal/types"
)

func TestDispatcherSendsAndMarks(t *testing.T) {
	outbox := &fakeOutboxRepo{}
	for i := 0; i < 3; i++ {
		if _, err := outbox.Create(context.Background(), nil, &types.OutboxMessage{
			Queue:   queue.QueueHydration,
			Payload: datatypes.JSON(`{"type":"NOTES","payload":{}}`),
		}); err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}
	client := &fakeQueueClient{}
	d := NewDispatcher(testutil.Logger(t), outbox, client, time.Second)

	sent, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if sent != 3 {
		t.Fatalf("sent: want=3 got=%d", sent)
	}
	if got := len(client.pushed[queue.QueueHydration]); got != 3 {
		t.Fatalf("pushed payloads: want=3 got=%d", got)
	}
	for _, m := range outbox.rows {
		if m.SentAt == nil {
			t.Fatalf("message %s not marked sent", m.ID)
		}
	}

	// A second pass finds nothing.
	sent, err = d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if sent != 0 {
		t.Fatalf("second pass sent: want=0 got=%d", sent)
	}
}

func TestDispatcherKeepsUnsendableMessages(t *testing.T) {
	outbox := &fakeOutboxRepo{}
	if _, err := outbox.Create(context.Background(), nil, &types.OutboxMessage{
		Queue:   queue.QueueRegeneration,
		Payload: datatypes.JSON(`{"type":"REGENERATE","payload":{}}`),
	}); err != nil {
		t.Fatalf("seed outbox: %v", err)
	}
	client := &fakeQueueClient{err: errors.New("redis down")}
	d := NewDispatcher(testutil.Logger(t), outbox, client, time.Second)

	sent, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent: want=0 got=%d", sent)
	}
	m := outbox.rows[0]
	if m.SentAt != nil {
		t.Fatal("failed message marked sent")
	}
	if m.Attempts != 1 {
		t.Fatalf("attempts: want=1 got=%d", m.Attempts)
	}

	// Recovery: the same message goes out on the next pass.
	client.err = nil
	sent, err = d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("recovery RunOnce: %v", err)
	}
	if sent != 1 {
		t.Fatalf("recovery sent: want=1 got=%d", sent)
	}
}
