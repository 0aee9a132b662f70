// Package store pairs the vector index with its source metadata in a single
// combined store. Each insert assigns one position to a (vector, metadata)
// pair atomically, so the index and the metadata can never drift apart.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/papyrus-labs/scholarag/internal/domain"
	"github.com/papyrus-labs/scholarag/internal/index"
)

// On-disk layout inside the store directory. The metadata sidecar is plain
// JSONL, readable without the index file.
const (
	vectorsFile  = "vectors.bin"
	metadataFile = "metadata.jsonl"
)

// Store holds embeddings and their metadata records under one position
// space. Reads may run concurrently; mutation takes the write lock, so at
// most one writer at a time and readers never observe a transient state.
type Store struct {
	mu    sync.RWMutex
	idx   *index.Flat
	metas []domain.MetadataRecord
}

// New creates an empty store with the given metric.
func New(metric index.Metric) *Store {
	return &Store{idx: index.NewFlat(metric)}
}

// Insert adds one (vector, metadata) pair and returns its position.
func (s *Store) Insert(vec []float32, meta domain.MetadataRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.idx.Add(vec)
	if err != nil {
		return 0, err
	}
	s.metas = append(s.metas, meta)
	return ids[0], nil
}

// InsertBatch adds pairs in order and returns the newly assigned positions.
// Vectors and metas must have equal length; nothing is inserted otherwise.
func (s *Store) InsertBatch(vecs [][]float32, metas []domain.MetadataRecord) ([]int, error) {
	if len(vecs) != len(metas) {
		return nil, fmt.Errorf("batch size mismatch: %d vectors, %d metadata records",
			len(vecs), len(metas))
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.idx.Add(vecs...)
	if err != nil {
		return nil, err
	}
	s.metas = append(s.metas, metas...)
	return ids, nil
}

// Get returns the metadata record at pos.
func (s *Store) Get(pos int) (domain.MetadataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos < 0 || pos >= len(s.metas) {
		return domain.MetadataRecord{}, fmt.Errorf("%w: position %d of %d", domain.ErrNotFound, pos, len(s.metas))
	}
	return s.metas[pos], nil
}

// Search returns up to k nearest neighbors of query, best first.
func (s *Store) Search(query []float32, k int) ([]index.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Search(query, k)
}

// Len returns the number of stored pairs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Len()
}

// Dim returns the vector dimension, or 0 for an empty store.
func (s *Store) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Dim()
}

// Metric returns the configured distance metric.
func (s *Store) Metric() index.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Metric()
}

// Save writes vectors.bin and metadata.jsonl into dir, creating it if
// needed. The two files are written from one consistent snapshot.
func (s *Store) Save(dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	if err := s.idx.Save(filepath.Join(dir, vectorsFile)); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := saveMetadata(filepath.Join(dir, metadataFile), s.metas); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// Open loads a store from dir. wantDim > 0 cross-checks the stored vector
// dimension against the runtime embedding dimension. Index/metadata
// cardinality mismatch means the persisted state is inconsistent and is
// reported as domain.ErrIndexCorrupted.
func Open(dir string, wantDim int) (*Store, error) {
	idx, err := index.Load(filepath.Join(dir, vectorsFile), wantDim)
	if err != nil {
		return nil, err
	}

	metas, err := loadMetadata(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}

	if len(metas) != idx.Len() {
		return nil, fmt.Errorf("%w: %d metadata records for %d vectors",
			domain.ErrIndexCorrupted, len(metas), idx.Len())
	}

	return &Store{idx: idx, metas: metas}, nil
}

// Exists reports whether dir contains a saved store.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, vectorsFile))
	return err == nil
}

func saveMetadata(path string, metas []domain.MetadataRecord) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for i, m := range metas {
		if err := enc.Encode(m); err != nil {
			file.Close()
			os.Remove(tmp)
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func loadMetadata(path string) ([]domain.MetadataRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var metas []domain.MetadataRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var m domain.MetadataRecord
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			return nil, fmt.Errorf("%w: metadata line %d: %v", domain.ErrIndexCorrupted, line, err)
		}
		metas = append(metas, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return metas, nil
}
