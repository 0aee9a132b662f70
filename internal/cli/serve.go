package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/store"
	chiTransport "github.com/papyrus-labs/scholarag/internal/transport/chi"
	openaiTransport "github.com/papyrus-labs/scholarag/internal/transport/openai"
	answeruc "github.com/papyrus-labs/scholarag/internal/usecase/answer"
	botuc "github.com/papyrus-labs/scholarag/internal/usecase/bot"
	healthuc "github.com/papyrus-labs/scholarag/internal/usecase/health"
	retrieveuc "github.com/papyrus-labs/scholarag/internal/usecase/retrieve"
	"github.com/papyrus-labs/scholarag/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP question-answering server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting scholarag server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_dir", cfg.Store.Dir),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("llm_model", cfg.LLM.Model),
	)

	st, err := store.Open(cfg.Store.Dir, cfg.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("open store (run \"scholarag ingest\" first): %w", err)
	}
	log.Info("Store loaded",
		zap.Int("vectors", st.Len()),
		zap.Int("dimension", st.Dim()),
		zap.String("metric", string(st.Metric())),
	)

	embedder, baseEmbedder, closeCache, err := buildEmbedder(cfg, log)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	defer closeCache()

	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:  log,
	})

	retriever := retrieveuc.New(st, embedder, log)
	generator := answeruc.New(completer, log)
	bot := botuc.New(retriever, generator, cfg.Store.TopK,
		cfg.LLM.AnswerLengths, cfg.LLM.DefaultLength, log)
	health := healthuc.New(st, baseEmbedder)

	server := chiTransport.NewServer(bot, health, log)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		log.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		return err
	}

	log.Info("Server stopped gracefully")
	return nil
}
