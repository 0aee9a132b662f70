package domain

import "time"

// Source type values carried on documents and metadata records.
// Citation formatting depends on them: papers render as "Title (category)",
// transcripts as the bare title.
const (
	SourceTypePaper      = "arxiv_paper"
	SourceTypeTranscript = "transcript"
)

// Document is an ingested scholarly document. Immutable once ingested.
type Document struct {
	ID              string
	Title           string
	Summary         string
	Authors         []string
	PublishedAt     time.Time
	UpdatedAt       time.Time
	PDFLink         string
	PrimaryCategory string
	Categories      []string
	SourceType      string
	FullText        string
}

// Chunk is a bounded text segment of a document, the unit of embedding
// and retrieval. Seq is the zero-based chunk number within the document;
// CharStart/CharEnd are rune offsets into the source text.
type Chunk struct {
	DocumentID string
	Seq        int
	Text       string
	CharStart  int
	CharEnd    int
}

// MetadataRecord maps a store position back to its human-readable source.
// Text is the chunk text itself, stored inline so context assembly does not
// need the original documents at query time.
type MetadataRecord struct {
	DocumentID      string   `json:"document_id"`
	ChunkSeq        int      `json:"chunk_seq"`
	Title           string   `json:"title"`
	Link            string   `json:"link,omitempty"`
	PrimaryCategory string   `json:"primary_category,omitempty"`
	SourceType      string   `json:"source_type"`
	Authors         []string `json:"authors,omitempty"`
	Text            string   `json:"text"`
}
