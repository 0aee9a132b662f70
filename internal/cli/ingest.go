package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/ingest"
)

var ingestRebuild bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build or extend the vector store from the configured corpus",
	Long: `Loads the papers parquet file and transcript directories, splits the
documents into overlapping chunks, embeds them, and writes the vector store.

An existing store is extended unless --rebuild is given.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "discard the existing store and rebuild from scratch")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	embedder, _, closeCache, err := buildEmbedder(cfg, log)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	defer closeCache()

	svc := ingest.New(embedder, log)
	stats, err := svc.Run(cmd.Context(), ingest.Options{
		ParquetPath:    cfg.Corpus.ParquetPath,
		TranscriptDirs: cfg.Corpus.TranscriptDirs,
		StoreDir:       cfg.Store.Dir,
		ChunkSize:      cfg.Chunking.Size,
		ChunkOverlap:   cfg.Chunking.Overlap,
		MaxBatchSize:   cfg.Embedding.MaxBatchSize,
		Metric:         cfg.Store.Metric,
		Rebuild:        ingestRebuild,
	})
	if err != nil {
		return err
	}

	log.Info("Store written",
		zap.String("dir", cfg.Store.Dir),
		zap.Int("vectors", stats.StoreSize),
	)
	cmd.Printf("Ingested %d documents (%d chunks, %d tokens) into %s\n",
		stats.Documents, stats.Chunks, stats.Tokens, cfg.Store.Dir)
	return nil
}
