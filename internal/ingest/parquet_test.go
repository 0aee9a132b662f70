package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

type paperRow struct {
	Title      string `parquet:"title"`
	Abstract   string `parquet:"abstract"`
	Categories string `parquet:"categories"`
	Authors    string `parquet:"authors"`
	UpdateDate string `parquet:"update_date"`
}

func writeParquet(t *testing.T, path string, rows []paperRow) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	w := parquet.NewGenericWriter[paperRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestLoadPapers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.parquet")
	writeParquet(t, path, []paperRow{
		{
			Title:      "Attention Is All You Need",
			Abstract:   "The dominant sequence transduction models...",
			Categories: "cs.CL cs.LG",
			Authors:    "Ashish Vaswani, Noam Shazeer",
			UpdateDate: "2017-12-06",
		},
		{
			Title:      "Deep Residual Learning",
			Abstract:   "Deeper neural networks are more difficult to train.",
			Categories: "cs.CV",
			Authors:    "Kaiming He",
			UpdateDate: "2015-12-10",
		},
	})

	docs, err := LoadPapers(path)
	if err != nil {
		t.Fatalf("LoadPapers: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}

	first := docs[0]
	if first.Title != "Attention Is All You Need" {
		t.Errorf("title = %q", first.Title)
	}
	if first.PrimaryCategory != "cs.CL" {
		t.Errorf("primary category = %q, want cs.CL", first.PrimaryCategory)
	}
	if len(first.Categories) != 2 || first.Categories[1] != "cs.LG" {
		t.Errorf("categories = %v", first.Categories)
	}
	if len(first.Authors) != 2 || first.Authors[0] != "Ashish Vaswani" {
		t.Errorf("authors = %v", first.Authors)
	}
	if first.SourceType != domain.SourceTypePaper {
		t.Errorf("source type = %q", first.SourceType)
	}

	wantText := "Title: Attention Is All You Need\n\nAbstract: The dominant sequence transduction models..."
	if first.FullText != wantText {
		t.Errorf("full text = %q, want %q", first.FullText, wantText)
	}

	if docs[1].ID == docs[0].ID {
		t.Errorf("document IDs must be unique, both %q", docs[0].ID)
	}
}

func TestLoadPapersMissingFile(t *testing.T) {
	docs, err := LoadPapers(filepath.Join(t.TempDir(), "absent.parquet"))
	if err != nil {
		t.Fatalf("LoadPapers: %v", err)
	}
	if docs != nil {
		t.Fatalf("docs = %v, want nil", docs)
	}
}

func TestLoadPapersMissingColumns(t *testing.T) {
	type badRow struct {
		Name string `parquet:"name"`
	}
	path := filepath.Join(t.TempDir(), "bad.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := parquet.NewGenericWriter[badRow](f)
	if _, err := w.Write([]badRow{{Name: "x"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	if _, err := LoadPapers(path); err == nil {
		t.Fatal("expected error for parquet without title/abstract columns")
	}
}
