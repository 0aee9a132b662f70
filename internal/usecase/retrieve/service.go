// Package retrieve embeds a query, searches the vector store, and joins
// hits against source metadata.
package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/domain"
	"github.com/papyrus-labs/scholarag/internal/metrics"
)

// Service handles top-k retrieval over the combined store.
type Service struct {
	store  Store
	embed  Embedder
	logger *zap.Logger
}

// New creates a retrieval service.
func New(store Store, embed Embedder, logger *zap.Logger) *Service {
	return &Service{store: store, embed: embed, logger: logger}
}

// Retrieve returns up to k scored chunks for the query, best first.
// An empty store yields an empty result, not an error. Positions whose
// metadata cannot be resolved are logged, skipped, and backfilled from the
// next-best candidates, so the result still has k entries when possible.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || s.store.Len() == 0 {
		return nil, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	// Search with headroom so skipped positions can be backfilled without
	// a second search.
	headroom := 2 * k
	if headroom > s.store.Len() {
		headroom = s.store.Len()
	}

	hits, err := s.store.Search(embResult.Embedding, headroom)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, k)
	for _, hit := range hits {
		meta, err := s.store.Get(hit.Position)
		if err != nil {
			s.logger.Warn("Skipping unresolvable position",
				zap.Int("position", hit.Position),
				zap.Error(err),
			)
			continue
		}
		chunks = append(chunks, domain.ScoredChunk{
			Position: hit.Position,
			Score:    hit.Score,
			Text:     meta.Text,
			Meta:     meta,
		})
		if len(chunks) == k {
			break
		}
	}

	metrics.RetrievedChunksTotal.Add(float64(len(chunks)))
	return chunks, nil
}
