package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
//
// Designed for testing and single-process development: zero setup, no
// durability. All data is lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	builds   map[string][]BuildRecord
	closed   bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		builds:   make(map[string][]BuildRecord),
	}
}

// SaveSession implements Store.
func (m *MemoryStore) SaveSession(ctx context.Context, sessionID string, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(snapshot))
	copy(cp, snapshot)
	m.sessions[sessionID] = cp
	return nil
}

// LoadSession implements Store.
func (m *MemoryStore) LoadSession(ctx context.Context, sessionID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(snapshot))
	copy(cp, snapshot)
	return cp, nil
}

// DeleteSession implements Store.
func (m *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// SaveBuild implements Store.
func (m *MemoryStore) SaveBuild(ctx context.Context, runID string, seq int, vertexID string, result []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(result))
	copy(cp, result)
	m.builds[runID] = append(m.builds[runID], BuildRecord{
		Seq:      seq,
		VertexID: vertexID,
		Result:   cp,
	})
	return nil
}

// LoadBuilds implements Store.
func (m *MemoryStore) LoadBuilds(ctx context.Context, runID string) ([]BuildRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]BuildRecord, len(m.builds[runID]))
	copy(records, m.builds[runID])
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = make(map[string][]byte)
	m.builds = make(map[string][]BuildRecord)
	return nil
}
