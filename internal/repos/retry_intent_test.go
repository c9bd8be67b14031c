package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/brightboard/contentforge-backend/internal/repos/testutil"
	"github.com/brightboard/contentforge-backend/internal/types"
)

func seedRetryIntent(t *testing.T, repo RetryIntentRepo) *types.RetryIntent {
	t.Helper()
	intent, err := repo.Create(context.Background(), nil, &types.RetryIntent{
		SourceJobID: uuid.New(),
		ReasonCode:  "LLM_TIMEOUT",
		ReasonText:  "generation timed out twice",
		ApprovedBy:  uuid.New(),
		Status:      types.RetryIntentPending,
	})
	if err != nil {
		t.Fatalf("seed retry intent: %v", err)
	}
	return intent
}

func TestConsumeIfPendingIsSingleUse(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRetryIntentRepo(db, testutil.Logger(t))
	intent := seedRetryIntent(t, repo)
	t.Cleanup(func() {
		db.Where("id = ?", intent.ID).Delete(&types.RetryIntent{})
	})
	ctx := context.Background()

	affected, err := repo.ConsumeIfPending(ctx, nil, intent.ID)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if affected != 1 {
		t.Fatalf("first consume affected: want=1 got=%d", affected)
	}

	affected, err = repo.ConsumeIfPending(ctx, nil, intent.ID)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second consume affected: want=0 got=%d", affected)
	}

	reloaded, err := repo.GetByID(ctx, nil, intent.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != types.RetryIntentConsumed {
		t.Fatalf("status: want=%s got=%s", types.RetryIntentConsumed, reloaded.Status)
	}
}

func TestRejectIfPendingLosesToConsume(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRetryIntentRepo(db, testutil.Logger(t))
	intent := seedRetryIntent(t, repo)
	t.Cleanup(func() {
		db.Where("id = ?", intent.ID).Delete(&types.RetryIntent{})
	})
	ctx := context.Background()

	if _, err := repo.ConsumeIfPending(ctx, nil, intent.ID); err != nil {
		t.Fatalf("consume: %v", err)
	}
	affected, err := repo.RejectIfPending(ctx, nil, intent.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if affected != 0 {
		t.Fatalf("reject after consume affected: want=0 got=%d", affected)
	}
	reloaded, _ := repo.GetByID(ctx, nil, intent.ID)
	if reloaded.Status != types.RetryIntentConsumed {
		t.Fatalf("consumed intent flipped to %s", reloaded.Status)
	}
}
