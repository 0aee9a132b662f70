// Package answer assembles a grounded prompt from retrieved chunks,
// delegates generation to the language-model backend, and attaches source
// citations to the output.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

// Completer is the generation backend capability. Implementations make a
// single blocking call per prompt; the service never retries, because
// language-model output is not idempotent.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Service produces grounded answers with citations.
type Service struct {
	completer Completer
	logger    *zap.Logger
}

// New creates an answer service.
func New(completer Completer, logger *zap.Logger) *Service {
	return &Service{completer: completer, logger: logger}
}

// Generate builds the prompt from the query and retrieved context, calls
// the backend, and attaches the citation list. An empty context still
// yields an Answer (with empty citations); backend failures surface as-is.
func (s *Service) Generate(
	ctx context.Context, query string, chunks []domain.ScoredChunk, maxTokens int,
) (domain.Answer, error) {
	prompt := buildPrompt(query, chunks)

	text, err := s.completer.Complete(ctx, prompt, maxTokens)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("complete: %w", err)
	}

	return domain.Answer{
		Text:      strings.TrimSpace(text),
		Citations: citationsFrom(chunks),
	}, nil
}

// buildPrompt tags each context chunk with a numbered source identifier so
// the answer text can reference them.
func buildPrompt(query string, chunks []domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("You are a research assistant. Answer the question using only the sources below. ")
	b.WriteString("If the sources do not contain the answer, say that you do not know.\n\n")

	if len(chunks) == 0 {
		b.WriteString("No sources are available for this question.\n")
	} else {
		b.WriteString("Sources:\n")
		for i, c := range chunks {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, c.Meta.Title, c.Text)
		}
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// citationsFrom derives the ordered citation list from the context entries.
// Multiple chunks of the same source collapse to one citation; the first
// occurrence in descending-score order wins, and output order follows that.
func citationsFrom(chunks []domain.ScoredChunk) []domain.Citation {
	if len(chunks) == 0 {
		return nil
	}

	type key struct{ title, sourceType string }
	seen := make(map[key]struct{}, len(chunks))
	citations := make([]domain.Citation, 0, len(chunks))
	for _, c := range chunks {
		k := key{c.Meta.Title, c.Meta.SourceType}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		citations = append(citations, domain.Citation{
			Title:           c.Meta.Title,
			Link:            c.Meta.Link,
			PrimaryCategory: c.Meta.PrimaryCategory,
			SourceType:      c.Meta.SourceType,
		})
	}
	return citations
}
