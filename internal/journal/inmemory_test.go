package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestInMemoryJournal_SaveTracksStateChanges(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := start
	SetClock(j, func() time.Time { tick = tick.Add(time.Second); return tick })

	rec := Record{ID: uuid.NewString(), State: "connecting", Purpose: "activation", AmountUSD: decimal.NewFromInt(10)}
	for _, state := range []string{"connecting", "network_checking", "network_checking", "submitting"} {
		rec.State = state
		if err := j.Save(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", state, err)
		}
	}

	steps, err := j.History(ctx, rec.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[2].State != "submitting" {
		t.Fatalf("expected last step submitting, got %s", steps[2].State)
	}

	got, err := j.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CreatedAt.Equal(start.Add(time.Second)) {
		t.Fatalf("created_at moved: %v", got.CreatedAt)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updated_at %v not after created_at %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestInMemoryJournal_FindByTxHash(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()
	rec := Record{ID: uuid.NewString(), State: "pending_on_chain", TxHash: "0xABCDEF"}
	if err := j.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := j.FindByTxHash(ctx, "0xabcdef")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("expected %s, got %s", rec.ID, got.ID)
	}

	if _, err := j.FindByTxHash(ctx, "0x00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := j.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryJournal_ConcurrentSaves(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = j.Save(ctx, Record{ID: fmt.Sprintf("attempt-%d", i), State: "connecting"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		if _, err := j.Get(ctx, fmt.Sprintf("attempt-%d", i)); err != nil {
			t.Fatalf("attempt %d missing: %v", i, err)
		}
	}
}
