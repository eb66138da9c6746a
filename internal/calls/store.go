// Package calls keeps the short list of recent outbound calls.
package calls

import (
	"context"
	"sync"

	"leadcapture/internal/common/errors"
	"leadcapture/internal/models"
)

// MaxRecent caps the recent-calls list.
const MaxRecent = 10

type (
	Record = models.CallRecord
	Status = models.CallStatus
)

// Store holds recent calls, newest first, never more than MaxRecent.
type Store interface {
	Add(ctx context.Context, rec Record) error
	Update(ctx context.Context, id string, fn func(*Record)) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Clear(ctx context.Context) error
}

// prepend puts rec first, replacing any record with the same id, and trims to max.
func prepend(list []Record, rec Record, max int) []Record {
	out := make([]Record, 0, len(list)+1)
	out = append(out, rec)
	for _, r := range list {
		if r.ID != rec.ID {
			out = append(out, r)
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func find(list []Record, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// MemoryStore is the in-process fallback when Redis is disabled.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	max     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{max: MaxRecent}
}

func (m *MemoryStore) Add(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = prepend(m.records, rec, m.max)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Record)) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := find(m.records, id)
	if i < 0 {
		return Record{}, errors.NewCallNotFoundError(id)
	}
	fn(&m.records[i])
	return m.records[i], nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := find(m.records, id)
	if i < 0 {
		return Record{}, errors.NewCallNotFoundError(id)
	}
	return m.records[i], nil
}

func (m *MemoryStore) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record{}, m.records...), nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}
