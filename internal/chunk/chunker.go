// Package chunk splits document text into overlapping fixed-size segments,
// the unit of embedding and retrieval.
package chunk

import (
	"fmt"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

// Split slides a window of size runes across text, advancing by size-overlap
// each step. The final chunk may be shorter than size. Text that is empty or
// shorter than size yields a single chunk spanning the whole text.
// Identical input always yields identical boundaries.
func Split(docID, text string, size, overlap int) ([]domain.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", domain.ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", domain.ErrInvalidChunking, overlap)
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []domain.Chunk{{
			DocumentID: docID,
			Seq:        0,
			Text:       text,
			CharStart:  0,
			CharEnd:    len(runes),
		}}, nil
	}

	step := size - overlap
	chunks := make([]domain.Chunk, 0, (len(runes)+step-1)/step)
	for start, seq := 0, 0; start < len(runes); start, seq = start+step, seq+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: docID,
			Seq:        seq,
			Text:       string(runes[start:end]),
			CharStart:  start,
			CharEnd:    end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
