package retrieve

import (
	"context"

	"github.com/papyrus-labs/scholarag/internal/domain"
	"github.com/papyrus-labs/scholarag/internal/index"
)

// Store is the combined vector/metadata store contract used by retrieval.
type Store interface {
	Search(query []float32, k int) ([]index.Hit, error)
	Get(pos int) (domain.MetadataRecord, error)
	Len() int
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
