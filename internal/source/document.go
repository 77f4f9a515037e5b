// Package source enumerates raw documents produced by the crawler.
package source

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
)

// RawDocument is one crawled page as handed to the index builder.
type RawDocument struct {
	URL   string   `json:"url"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Links []string `json:"links"`
}

// Source lists and loads raw documents. Names must be stable and sorted so
// that two builds over the same corpus ingest in the same order.
type Source interface {
	Names(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (RawDocument, error)
}

// Validate rejects a document without a usable url, which is its identity.
// Title and text may be empty: the crawler stores NULL titles and pages
// whose text yields no terms are still indexed.
func (d RawDocument) Validate() error {
	if strings.TrimSpace(d.URL) == "" {
		return apperrors.Input("document has a blank url")
	}
	return nil
}

// Hash returns the document identity derived from its URL.
func (d RawDocument) Hash() string {
	return HashURL(d.URL)
}

// HashURL returns the lowercase hex MD5 of url.
func HashURL(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

const (
	KindJSONDir  = "jsondir"
	KindSpiderDB = "spider"
)

// Open returns the source of the given kind rooted at path. A SpiderDB
// source holds a database handle and must be closed by the caller.
func Open(kind, path string) (Source, error) {
	switch kind {
	case KindJSONDir:
		return NewJSONDir(path), nil
	case KindSpiderDB:
		db, err := NewSpiderDB(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: source type %q", apperrors.ErrUnsupportedOption, kind)
	}
}
