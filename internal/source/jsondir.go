package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
)

// JSONDir reads one RawDocument per *.json file of a directory.
type JSONDir struct {
	dir string
}

func NewJSONDir(dir string) *JSONDir {
	return &JSONDir{dir: dir}
}

// jsonDocument distinguishes absent fields from empty ones.
type jsonDocument struct {
	URL   *string  `json:"url"`
	Title *string  `json:"title"`
	Text  *string  `json:"text"`
	Links []string `json:"links"`
}

// Names returns the file names sorted lexically. A missing directory is an
// empty corpus.
func (s *JSONDir) Names(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading raw document directory %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *JSONDir) Load(ctx context.Context, name string) (RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return RawDocument{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return RawDocument{}, fmt.Errorf("reading %s: %w", name, err)
	}

	var raw jsonDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return RawDocument{}, apperrors.Input("%s: invalid JSON: %v", name, err)
	}

	switch {
	case raw.URL == nil:
		return RawDocument{}, apperrors.Input("%s: missing field url", name)
	case raw.Title == nil:
		return RawDocument{}, apperrors.Input("%s: missing field title", name)
	case raw.Text == nil:
		return RawDocument{}, apperrors.Input("%s: missing field text", name)
	}

	doc := RawDocument{
		URL:   *raw.URL,
		Title: *raw.Title,
		Text:  *raw.Text,
		Links: raw.Links,
	}
	if err := doc.Validate(); err != nil {
		return RawDocument{}, fmt.Errorf("%s: %w", name, err)
	}
	return doc, nil
}
