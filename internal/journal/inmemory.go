package journal

import (
	"context"
	"strings"
	"sync"
	"time"
)

type inMemoryJournal struct {
	mu      sync.RWMutex
	records map[string]Record
	history map[string][]Step
	now     func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory journal for development and tests.
func NewInMemory() Journal {
	return &inMemoryJournal{
		records: make(map[string]Record),
		history: make(map[string][]Step),
		now:     time.Now,
	}
}

func (j *inMemoryJournal) Save(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().UTC()
	prev, exists := j.records[rec.ID]
	if exists {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	j.records[rec.ID] = rec

	if !exists || prev.State != rec.State {
		j.history[rec.ID] = append(j.history[rec.ID], Step{State: rec.State, At: now})
	}
	return nil
}

func (j *inMemoryJournal) Get(_ context.Context, id string) (Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (j *inMemoryJournal) FindByTxHash(_ context.Context, hash string) (Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, rec := range j.records {
		if rec.TxHash != "" && strings.EqualFold(rec.TxHash, hash) {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (j *inMemoryJournal) History(_ context.Context, id string) ([]Step, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	steps, ok := j.history[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Step(nil), steps...), nil
}
