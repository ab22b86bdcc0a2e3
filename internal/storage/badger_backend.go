package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/sgindex/internal/features"
	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/mining"
)

// Key prefixes for different data types
const (
	prefixMeta      = "m:" // run metadata
	prefixFeature   = "f:" // scored feature, by position
	prefixMatrix    = "x:" // database feature matrix
	prefixGraph     = "g:" // signature, by database row
	prefixSignature = "s:" // database id, by signature digest
)

var (
	keyMeta   = []byte(prefixMeta + "run")
	keyMatrix = []byte(prefixMatrix + "db")
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db           *badger.DB
	initialized  bool
	mu           sync.RWMutex
	graphCount   int
	featureCount int
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	b.refreshCounts()

	return nil
}

// refreshCounts reloads the cached counts from the stored metadata.
func (b *BadgerBackend) refreshCounts() {
	b.graphCount = 0
	b.featureCount = 0

	meta, err := b.getMeta()
	if err != nil {
		return
	}
	b.graphCount = meta.Graphs

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixFeature)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		b.featureCount++
	}
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// SaveIndex replaces the stored index.
func (b *BadgerBackend) SaveIndex(ctx context.Context, idx *Index) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := idx.Validate(); err != nil {
		return err
	}

	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	metaData, err := json.Marshal(idx.Meta)
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	if err := wb.Set(keyMeta, metaData); err != nil {
		return fmt.Errorf("setting meta: %w", err)
	}

	for i, sp := range idx.Features {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(sp)
		if err != nil {
			return fmt.Errorf("marshaling feature: %w", err)
		}
		if err := wb.Set(b.featureKey(i), data); err != nil {
			return fmt.Errorf("setting feature: %w", err)
		}
	}

	if idx.Database != nil {
		data, err := idx.Database.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encoding matrix: %w", err)
		}
		if err := wb.Set(keyMatrix, data); err != nil {
			return fmt.Errorf("setting matrix: %w", err)
		}
	}

	seen := make(map[graph.Signature]struct{}, len(idx.Signatures))
	for i, sig := range idx.Signatures {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Set(b.graphKey(i), []byte(sig)); err != nil {
			return fmt.Errorf("setting graph: %w", err)
		}
		// Keep the first row for duplicate signatures.
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		if err := wb.Set(b.signatureKey(sig), []byte(strconv.Itoa(i+1))); err != nil {
			return fmt.Errorf("setting signature: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return err
	}

	b.graphCount = idx.Meta.Graphs
	b.featureCount = len(idx.Features)
	return nil
}

// LoadIndex returns the stored index or ErrIndexNotFound.
func (b *BadgerBackend) LoadIndex(ctx context.Context) (*Index, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta, err := b.getMeta()
	if err != nil {
		return nil, err
	}
	feats, err := b.getFeatures()
	if err != nil {
		return nil, err
	}

	idx := &Index{Meta: *meta, Features: feats}

	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMatrix)
		if errors.Is(err, badger.ErrKeyNotFound) {
			idx.Database = features.NewMatrix(0, len(feats))
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var m features.Matrix
			if err := m.UnmarshalBinary(val); err != nil {
				return err
			}
			idx.Database = &m
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading matrix: %w", err)
	}

	err = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixGraph)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			idx.Signatures = append(idx.Signatures, graph.Signature(val))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading signatures: %w", err)
	}

	return idx, nil
}

// GetMeta returns the run metadata or ErrIndexNotFound.
func (b *BadgerBackend) GetMeta(ctx context.Context) (*RunMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.getMeta()
}

func (b *BadgerBackend) getMeta() (*RunMeta, error) {
	var meta RunMeta
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMeta)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	return &meta, nil
}

// GetFeatures returns the scored feature list in order.
func (b *BadgerBackend) GetFeatures(ctx context.Context) ([]mining.ScoredPattern, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.getFeatures()
}

func (b *BadgerBackend) getFeatures() ([]mining.ScoredPattern, error) {
	var feats []mining.ScoredPattern
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixFeature)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var sp mining.ScoredPattern
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sp)
			}); err != nil {
				return err
			}
			feats = append(feats, sp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading features: %w", err)
	}
	return feats, nil
}

// FindGraph returns the 1-based database id of the graph with the given
// signature.
func (b *BadgerBackend) FindGraph(ctx context.Context, sig graph.Signature) (int, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var id int
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.signatureKey(sig))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, err := strconv.Atoi(string(val))
			id = n
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("looking up signature: %w", err)
	}
	return id, true, nil
}

// featureKey zero-pads the position so that prefix iteration keeps order.
func (b *BadgerBackend) featureKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefixFeature, i))
}

func (b *BadgerBackend) graphKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefixGraph, i))
}

// signatureKey hashes the signature, which can exceed Badger's key size.
func (b *BadgerBackend) signatureKey(sig graph.Signature) []byte {
	sum := sha256.Sum256([]byte(sig))
	return []byte(prefixSignature + hex.EncodeToString(sum[:]))
}

// GraphCount returns the number of database graphs.
func (b *BadgerBackend) GraphCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.graphCount
}

// FeatureCount returns the number of features.
func (b *BadgerBackend) FeatureCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.featureCount
}
