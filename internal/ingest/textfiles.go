package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

// LoadTranscripts walks the given directories recursively and loads every
// .txt file as one transcript document. Missing directories are skipped.
func LoadTranscripts(dirs []string) ([]domain.Document, error) {
	var docs []domain.Document

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}

		var paths []string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".txt") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
		sort.Strings(paths)

		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}

			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			docs = append(docs, domain.Document{
				ID:         "transcript-" + stem,
				Title:      titleFromStem(stem),
				SourceType: domain.SourceTypeTranscript,
				FullText:   string(data),
			})
		}
	}

	return docs, nil
}

// titleFromStem turns a file stem like "lecture_12_attention" into
// "Lecture 12 Attention".
func titleFromStem(stem string) string {
	words := strings.Split(strings.ReplaceAll(stem, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
