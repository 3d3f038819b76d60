package review

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a mutex-guarded in-memory Store, the default for the service
// when no database is configured, and the backend tests run against.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepare(rec, time.Now().UTC())
	m.records[rec.ID] = *rec
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) Approve(ctx context.Context, id string) (*Record, error) {
	return m.decide(id, StatusApproved)
}

func (m *Memory) Reject(ctx context.Context, id string) (*Record, error) {
	return m.decide(id, StatusRejected)
}

func (m *Memory) decide(id string, status Status) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status != StatusPending {
		return nil, ErrNotPending
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	m.records[id] = rec
	return &rec, nil
}

func (m *Memory) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
