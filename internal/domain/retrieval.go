package domain

// ScoredChunk is one retrieval hit: a chunk of source text joined with its
// metadata record and similarity score. Position is the store slot the hit
// came from.
type ScoredChunk struct {
	Position int
	Score    float32
	Text     string
	Meta     MetadataRecord
}

// Citation is a source reference attached to a generated answer.
type Citation struct {
	Title           string `json:"title"`
	Link            string `json:"link,omitempty"`
	PrimaryCategory string `json:"primary_category,omitempty"`
	SourceType      string `json:"source_type"`
}

// String renders the citation for display: "Title (category)" for papers,
// the bare title otherwise.
func (c Citation) String() string {
	if c.SourceType == SourceTypePaper && c.PrimaryCategory != "" {
		return c.Title + " (" + c.PrimaryCategory + ")"
	}
	return c.Title
}

// Answer is a generated answer with its ordered source citations.
type Answer struct {
	Text      string
	Citations []Citation
}
