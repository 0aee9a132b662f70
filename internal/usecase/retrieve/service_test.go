package retrieve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/domain"
	"github.com/papyrus-labs/scholarag/internal/index"
)

// --- Mocks ---

type mockStore struct {
	hits      []index.Hit
	searchErr error
	metas     map[int]domain.MetadataRecord
	length    int
	lastK     int
}

func (m *mockStore) Search(_ []float32, k int) ([]index.Hit, error) {
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		k = len(m.hits)
	}
	return m.hits[:k], nil
}

func (m *mockStore) Get(pos int) (domain.MetadataRecord, error) {
	meta, ok := m.metas[pos]
	if !ok {
		return domain.MetadataRecord{}, fmt.Errorf("%w: position %d", domain.ErrNotFound, pos)
	}
	return meta, nil
}

func (m *mockStore) Len() int { return m.length }

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func meta(pos int) domain.MetadataRecord {
	return domain.MetadataRecord{
		DocumentID: fmt.Sprintf("doc-%d", pos),
		Title:      fmt.Sprintf("Paper %d", pos),
		SourceType: domain.SourceTypePaper,
		Text:       fmt.Sprintf("chunk text %d", pos),
	}
}

// --- Tests ---

func TestRetrieve_JoinsMetadata(t *testing.T) {
	store := &mockStore{
		hits:   []index.Hit{{Position: 2, Score: 0.9}, {Position: 0, Score: 0.7}},
		metas:  map[int]domain.MetadataRecord{0: meta(0), 2: meta(2)},
		length: 3,
	}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := New(store, embed, zap.NewNop())

	chunks, err := svc.Retrieve(context.Background(), "what is consciousness", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !embed.called {
		t.Error("expected Embed to be called")
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Position != 2 || chunks[0].Meta.Title != "Paper 2" {
		t.Errorf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[0].Text != "chunk text 2" {
		t.Errorf("expected chunk text joined from metadata, got %q", chunks[0].Text)
	}
}

func TestRetrieve_EmptyStore(t *testing.T) {
	store := &mockStore{length: 0}
	embed := &mockEmbedder{vec: []float32{1}}
	svc := New(store, embed, zap.NewNop())

	chunks, err := svc.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("expected no error on empty store, got %v", err)
	}
	if chunks != nil {
		t.Errorf("expected empty result, got %v", chunks)
	}
	if embed.called {
		t.Error("Embed should not be called on an empty store")
	}
}

func TestRetrieve_EmbedError(t *testing.T) {
	store := &mockStore{length: 3}
	embed := &mockEmbedder{err: domain.ErrModelUnavailable}
	svc := New(store, embed, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), "query", 2)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

// A missing metadata record is skipped and backfilled from the next-best
// candidate so the caller still receives k entries.
func TestRetrieve_BackfillsUnresolvable(t *testing.T) {
	store := &mockStore{
		hits: []index.Hit{
			{Position: 0, Score: 0.9},
			{Position: 1, Score: 0.8}, // missing metadata
			{Position: 2, Score: 0.7},
		},
		metas:  map[int]domain.MetadataRecord{0: meta(0), 2: meta(2)},
		length: 3,
	}
	svc := New(store, &mockEmbedder{vec: []float32{1}}, zap.NewNop())

	chunks, err := svc.Retrieve(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks after backfill, got %d", len(chunks))
	}
	if chunks[0].Position != 0 || chunks[1].Position != 2 {
		t.Errorf("expected positions [0, 2], got [%d, %d]", chunks[0].Position, chunks[1].Position)
	}
}

func TestRetrieve_SearchesWithHeadroom(t *testing.T) {
	store := &mockStore{
		hits:   []index.Hit{{Position: 0, Score: 0.9}},
		metas:  map[int]domain.MetadataRecord{0: meta(0)},
		length: 100,
	}
	svc := New(store, &mockEmbedder{vec: []float32{1}}, zap.NewNop())

	if _, err := svc.Retrieve(context.Background(), "query", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastK != 8 {
		t.Errorf("expected search k=8 (2x requested), got %d", store.lastK)
	}
}

func TestRetrieve_HeadroomCappedAtStoreSize(t *testing.T) {
	store := &mockStore{
		hits:   []index.Hit{{Position: 0, Score: 0.9}, {Position: 1, Score: 0.1}},
		metas:  map[int]domain.MetadataRecord{0: meta(0), 1: meta(1)},
		length: 2,
	}
	svc := New(store, &mockEmbedder{vec: []float32{1}}, zap.NewNop())

	chunks, err := svc.Retrieve(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastK != 2 {
		t.Errorf("expected search k capped at 2, got %d", store.lastK)
	}
	// k larger than the store returns everything available, not an error.
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}
