package domain

import "errors"

var (
	// ErrInvalidChunking signals invalid chunker parameters. The caller must
	// fix the configuration before retrying.
	ErrInvalidChunking = errors.New("invalid chunking parameters")
	// ErrModelUnavailable signals that the embedding backend cannot be reached.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrDimensionMismatch signals a vector dimension mismatch.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIndexCorrupted signals persisted store state inconsistent with the
	// runtime model. Requires a rebuild, never coerced.
	ErrIndexCorrupted = errors.New("index corrupted")
	// ErrNotFound signals a missing metadata record.
	ErrNotFound = errors.New("not found")
	// ErrGenerationTimeout signals that the generation backend did not answer
	// within the configured deadline.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrGenerationFailed signals a generation backend failure.
	ErrGenerationFailed = errors.New("generation failed")
)
