package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/chunk"
	"github.com/papyrus-labs/scholarag/internal/domain"
	"github.com/papyrus-labs/scholarag/internal/index"
	"github.com/papyrus-labs/scholarag/internal/store"
)

// Options controls one ingestion run.
type Options struct {
	ParquetPath    string
	TranscriptDirs []string
	StoreDir       string
	ChunkSize      int
	ChunkOverlap   int
	MaxBatchSize   int
	Metric         string
	// Rebuild discards an existing store instead of appending to it.
	Rebuild bool
}

// Stats summarizes an ingestion run.
type Stats struct {
	Documents int
	Chunks    int
	Tokens    int
	StoreSize int
}

// Service runs the corpus-to-store pipeline: load, chunk, embed, insert, save.
type Service struct {
	embedder domain.BatchEmbedder
	logger   *zap.Logger
}

// New creates an ingestion service.
func New(embedder domain.BatchEmbedder, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, logger: logger}
}

// Run executes one ingestion pass. Appending to an existing store keeps all
// prior positions; vectors and metadata for every chunk land in the store
// atomically, so a failed run never leaves them out of step.
func (s *Service) Run(ctx context.Context, opts Options) (Stats, error) {
	start := time.Now()

	docs, err := s.loadCorpus(opts)
	if err != nil {
		return Stats{}, err
	}
	if len(docs) == 0 {
		return Stats{}, fmt.Errorf("no documents found in any source")
	}

	st, err := s.openStore(opts)
	if err != nil {
		return Stats{}, err
	}

	chunks, err := splitAll(docs, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return Stats{}, err
	}
	s.logger.Info("Corpus chunked",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)

	tokens, err := s.embedAndInsert(ctx, st, docs, chunks, opts.MaxBatchSize)
	if err != nil {
		return Stats{}, err
	}

	if err := st.Save(opts.StoreDir); err != nil {
		return Stats{}, fmt.Errorf("save store: %w", err)
	}

	stats := Stats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Tokens:    tokens,
		StoreSize: st.Len(),
	}
	s.logger.Info("Ingestion finished",
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("tokens", stats.Tokens),
		zap.Int("store_size", stats.StoreSize),
		zap.Duration("duration", time.Since(start)),
	)
	return stats, nil
}

func (s *Service) loadCorpus(opts Options) ([]domain.Document, error) {
	papers, err := LoadPapers(opts.ParquetPath)
	if err != nil {
		return nil, fmt.Errorf("load papers: %w", err)
	}
	transcripts, err := LoadTranscripts(opts.TranscriptDirs)
	if err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}
	s.logger.Info("Corpus loaded",
		zap.Int("papers", len(papers)),
		zap.Int("transcripts", len(transcripts)),
	)
	return append(papers, transcripts...), nil
}

func (s *Service) openStore(opts Options) (*store.Store, error) {
	metric, err := index.ParseMetric(opts.Metric)
	if err != nil {
		return nil, err
	}

	if !opts.Rebuild && store.Exists(opts.StoreDir) {
		st, err := store.Open(opts.StoreDir, 0)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.logger.Info("Appending to existing store", zap.Int("size", st.Len()))
		return st, nil
	}

	return store.New(metric), nil
}

func splitAll(docs []domain.Document, size, overlap int) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := chunk.Split(doc.ID, doc.FullText, size, overlap)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", doc.ID, err)
		}
		chunks = append(chunks, cs...)
	}
	return chunks, nil
}

func (s *Service) embedAndInsert(
	ctx context.Context,
	st *store.Store,
	docs []domain.Document,
	chunks []domain.Chunk,
	batchSize int,
) (int, error) {
	if batchSize <= 0 {
		batchSize = 64
	}

	byID := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	tokens := 0
	for lo := 0; lo < len(chunks); lo += batchSize {
		hi := lo + batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		batch := chunks[lo:hi]

		texts := make([]string, len(batch))
		metas := make([]domain.MetadataRecord, len(batch))
		for i, c := range batch {
			doc := byID[c.DocumentID]
			texts[i] = c.Text
			metas[i] = domain.MetadataRecord{
				DocumentID:      c.DocumentID,
				ChunkSeq:        c.Seq,
				Title:           doc.Title,
				Link:            doc.PDFLink,
				PrimaryCategory: doc.PrimaryCategory,
				SourceType:      doc.SourceType,
				Authors:         doc.Authors,
				Text:            c.Text,
			}
		}

		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return tokens, fmt.Errorf("embed batch at %d: %w", lo, err)
		}
		tokens += res.TotalTokens

		if _, err := st.InsertBatch(res.Embeddings, metas); err != nil {
			return tokens, fmt.Errorf("insert batch at %d: %w", lo, err)
		}

		s.logger.Debug("Batch ingested",
			zap.Int("from", lo),
			zap.Int("to", hi),
			zap.Int("store_size", st.Len()),
		)
	}

	return tokens, nil
}
