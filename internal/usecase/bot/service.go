// Package bot orchestrates one retrieve-then-generate round per user query.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

// ErrUnknownLength signals an answer-length preset not present in the
// configuration.
var ErrUnknownLength = errors.New("unknown answer length")

// Retriever returns the top-k scored chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// Generator produces a grounded answer from a query and its context.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []domain.ScoredChunk, maxTokens int) (domain.Answer, error)
}

// Service is the query bot: it drives one retrieval and one generation per
// question and maps answer-length presets to token budgets.
type Service struct {
	retriever     Retriever
	generator     Generator
	topK          int
	lengths       map[string]int
	defaultLength string
	logger        *zap.Logger
}

// New creates a query bot.
func New(
	retriever Retriever,
	generator Generator,
	topK int,
	lengths map[string]int,
	defaultLength string,
	logger *zap.Logger,
) *Service {
	return &Service{
		retriever:     retriever,
		generator:     generator,
		topK:          topK,
		lengths:       lengths,
		defaultLength: defaultLength,
		logger:        logger,
	}
}

// Lengths returns the configured preset names, sorted for stable display.
func (s *Service) Lengths() []string {
	names := make([]string, 0, len(s.lengths))
	for name := range s.lengths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ask answers one question. length selects the answer-length preset; empty
// falls back to the configured default, an unknown preset fails with
// ErrUnknownLength before any backend call.
func (s *Service) Ask(ctx context.Context, query, length string) (domain.Answer, error) {
	if length == "" {
		length = s.defaultLength
	}
	maxTokens, ok := s.lengths[length]
	if !ok {
		return domain.Answer{}, fmt.Errorf("%w: %q", ErrUnknownLength, length)
	}

	start := time.Now()

	chunks, err := s.retriever.Retrieve(ctx, query, s.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	answer, err := s.generator.Generate(ctx, query, chunks, maxTokens)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate: %w", err)
	}

	s.logger.Info("Query answered",
		zap.Int("chunks", len(chunks)),
		zap.Int("citations", len(answer.Citations)),
		zap.String("length", length),
		zap.Duration("duration", time.Since(start)),
	)
	return answer, nil
}
