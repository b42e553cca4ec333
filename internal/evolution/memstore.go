package evolution

import (
	"context"
	"sort"
	"sync"

	"github.com/dusk-indust/reconcile/internal/contenthash"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu         sync.RWMutex
	evolutions map[string]*FileEvolution // key: storage key derived from path
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		evolutions: make(map[string]*FileEvolution),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// PutEvolution stores an evolution keyed by its path's storage key.
func (m *MemStore) PutEvolution(_ context.Context, ev *FileEvolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evolutions[contenthash.StorageKey(ev.FilePath)] = ev
	return nil
}

// PutSnapshot inserts or replaces a task snapshot under the file's
// evolution. The evolution must already exist.
func (m *MemStore) PutSnapshot(_ context.Context, filePath string, snap *TaskSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.evolutions[contenthash.StorageKey(filePath)]
	if !ok {
		return ErrNoBaseline
	}
	ev.SetSnapshot(snap)
	return nil
}

// RemoveTask deletes the task's snapshot from every evolution it touched.
func (m *MemStore) RemoveTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.evolutions {
		ev.RemoveSnapshot(taskID)
	}
	return nil
}

// RemoveEvolution discards an evolution and its baseline content.
func (m *MemStore) RemoveEvolution(_ context.Context, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.evolutions, contenthash.StorageKey(filePath))
	return nil
}

// GetEvolution returns the evolution for the given path, or nil if the file
// is not tracked.
func (m *MemStore) GetEvolution(_ context.Context, filePath string) (*FileEvolution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evolutions[contenthash.StorageKey(filePath)], nil
}

// ListEvolutions returns all tracked evolutions ordered by file path.
func (m *MemStore) ListEvolutions(_ context.Context) ([]*FileEvolution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*FileEvolution, 0, len(m.evolutions))
	for _, ev := range m.evolutions {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out, nil
}
