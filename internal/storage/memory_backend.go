package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/Benny93/sgindex/internal/features"
	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/mining"
)

// MemoryBackend is an in-memory implementation of StorageBackend for testing.
type MemoryBackend struct {
	mu    sync.RWMutex
	index *Index
	ids   map[graph.Signature]int
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = nil
	m.ids = nil
	return nil
}

// SaveIndex implements StorageBackend.
func (m *MemoryBackend) SaveIndex(ctx context.Context, idx *Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := idx.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := &Index{
		Meta:       idx.Meta,
		Features:   append([]mining.ScoredPattern(nil), idx.Features...),
		Signatures: append([]graph.Signature(nil), idx.Signatures...),
	}
	cp.Meta.Files = maps.Clone(idx.Meta.Files)
	if idx.Database != nil {
		db := features.NewMatrix(idx.Database.Dims())
		for i := range idx.Database.Rows() {
			copy(db.Row(i), idx.Database.Row(i))
		}
		cp.Database = db
	}

	m.ids = make(map[graph.Signature]int, len(cp.Signatures))
	for i, sig := range cp.Signatures {
		if _, ok := m.ids[sig]; !ok {
			m.ids[sig] = i + 1
		}
	}
	m.index = cp
	return nil
}

// LoadIndex implements StorageBackend.
func (m *MemoryBackend) LoadIndex(ctx context.Context) (*Index, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.index == nil {
		return nil, ErrIndexNotFound
	}
	return m.index, nil
}

// GetMeta implements StorageBackend.
func (m *MemoryBackend) GetMeta(ctx context.Context) (*RunMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.index == nil {
		return nil, ErrIndexNotFound
	}
	meta := m.index.Meta
	return &meta, nil
}

// GetFeatures implements StorageBackend.
func (m *MemoryBackend) GetFeatures(ctx context.Context) ([]mining.ScoredPattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.index == nil {
		return nil, nil
	}
	return append([]mining.ScoredPattern(nil), m.index.Features...), nil
}

// FindGraph implements StorageBackend.
func (m *MemoryBackend) FindGraph(ctx context.Context, sig graph.Signature) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.ids[sig]
	return id, ok, nil
}

// GraphCount implements StorageBackend.
func (m *MemoryBackend) GraphCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.index == nil {
		return 0
	}
	return m.index.Meta.Graphs
}

// FeatureCount implements StorageBackend.
func (m *MemoryBackend) FeatureCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.index == nil {
		return 0
	}
	return len(m.index.Features)
}
