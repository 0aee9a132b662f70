// Package ingest loads the scholarly corpus and builds the vector store.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

// paperColumns holds the leaf-level indexes of the columns we read from the
// papers parquet file. -1 means the column is absent.
type paperColumns struct {
	title      int
	abstract   int
	categories int
	authors    int
	updateDate int
}

func resolvePaperColumns(pf *parquet.File) (paperColumns, error) {
	cols := paperColumns{title: -1, abstract: -1, categories: -1, authors: -1, updateDate: -1}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch path[0] {
		case "title":
			cols.title = i
		case "abstract":
			cols.abstract = i
		case "categories":
			cols.categories = i
		case "authors":
			cols.authors = i
		case "update_date":
			cols.updateDate = i
		}
	}
	if cols.title < 0 || cols.abstract < 0 {
		return cols, fmt.Errorf("papers parquet missing title/abstract columns")
	}
	return cols, nil
}

// LoadPapers reads the papers parquet file into documents. A missing file is
// not an error: the transcript corpus can stand on its own.
func LoadPapers(path string) ([]domain.Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	h, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	cols, err := resolvePaperColumns(h.pf)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	seq := 0
	for _, rg := range h.pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 256)

		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				docs = append(docs, rowToPaper(buf[i], cols, seq))
				seq++
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read paper rows: %w", readErr)
			}
		}
	}

	return docs, nil
}

// rowToPaper extracts a paper document from a generic parquet row by column index.
func rowToPaper(row parquet.Row, cols paperColumns, seq int) domain.Document {
	var title, abstract, categories, authors, updateDate string

	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols.title:
			title = v.String()
		case cols.abstract:
			abstract = v.String()
		case cols.categories:
			categories = v.String()
		case cols.authors:
			authors = v.String()
		case cols.updateDate:
			updateDate = v.String()
		}
	}

	cats := strings.Fields(categories)
	primary := ""
	if len(cats) > 0 {
		primary = cats[0]
	}

	// update_date is a bare date; a malformed value leaves the zero time.
	updated, _ := time.Parse("2006-01-02", updateDate)

	return domain.Document{
		ID:              fmt.Sprintf("paper-%d", seq),
		Title:           title,
		Summary:         abstract,
		Authors:         splitAuthors(authors),
		UpdatedAt:       updated,
		PrimaryCategory: primary,
		Categories:      cats,
		SourceType:      domain.SourceTypePaper,
		FullText:        fmt.Sprintf("Title: %s\n\nAbstract: %s", title, abstract),
	}
}

func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
