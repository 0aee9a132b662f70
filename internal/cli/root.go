// Package cli wires the scholarag commands: serve, ingest, chat, version.
package cli

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/config"
	"github.com/papyrus-labs/scholarag/internal/domain"
	"github.com/papyrus-labs/scholarag/internal/logger"
	"github.com/papyrus-labs/scholarag/internal/metrics"
	"github.com/papyrus-labs/scholarag/internal/repository/embcache"
	openaiTransport "github.com/papyrus-labs/scholarag/internal/transport/openai"
)

var rootCmd = &cobra.Command{
	Use:   "scholarag",
	Short: "Question answering over a scholarly corpus",
	Long: `scholarag ingests arXiv paper dumps and lecture transcripts into a
local vector store and answers questions grounded in that corpus.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the environment config and builds the logger. Shared by every
// command.
func setup() (config.Config, *zap.Logger, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, err
	}

	log, err := logger.New(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, err
	}

	metrics.Register()
	return cfg, log, nil
}

// embedderChain is the composed embedding client: per-text, batched, both
// behind the cache when one is configured.
type embedderChain interface {
	domain.Embedder
	domain.BatchEmbedder
}

// buildEmbedder assembles the embedding chain: OpenAI-compatible provider,
// optionally wrapped in the sqlite cache. The returned close func releases
// the cache database; it is a no-op without a cache.
func buildEmbedder(cfg config.Config, log *zap.Logger) (embedderChain, *openaiTransport.Embedder, func(), error) {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     log,
	})

	if cfg.Cache.Path == "" {
		return base, base, func() {}, nil
	}

	cached, err := embcache.Open(cfg.Cache.Path, base, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cached, base, func() { _ = cached.Close() }, nil
}
