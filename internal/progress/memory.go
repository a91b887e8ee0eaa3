package progress

import (
	"context"
	"sync"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

// MemoryStore keeps records for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]practice.ProgressRecord
	inits   map[string]int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]practice.ProgressRecord), inits: make(map[string]int)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (practice.ProgressRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, rec practice.ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[KeyOf(rec)] = rec
	return nil
}

func (m *MemoryStore) Init(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits[userID]++
	return nil
}

// Inits reports how many times Init ran for userID.
func (m *MemoryStore) Inits(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits[userID]
}
