// Package ranker scores documents against a query by cosine similarity of
// tf-idf vectors.
package ranker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
	"github.com/deidaraiorek/gogol/internal/logger"
	"github.com/deidaraiorek/gogol/internal/storage"
)

// Index is the read side of the index store used by the ranker.
type Index interface {
	TermID(ctx context.Context, term string) (int64, bool, error)
	PostingsForTerm(ctx context.Context, termID int64) ([]storage.Posting, error)
	DocumentNorms(ctx context.Context) (map[int64]float64, error)
	Document(ctx context.Context, id int64) (*storage.Document, error)
	Stats(ctx context.Context) (storage.IndexStats, error)
}

type Result struct {
	DocID int64   `json:"doc_id"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

type IndexStats struct {
	TotalDocuments int64  `json:"total_documents"`
	TotalTerms     int64  `json:"total_terms"`
	TotalPostings  int64  `json:"total_postings"`
	StoreSize      string `json:"store_size"`
}

// Ranker holds document norms and a term-id cache loaded from the index.
// Both are snapshots: call Refresh after the index changes.
type Ranker struct {
	store  Index
	db     *storage.IndexDB
	logger *slog.Logger

	mu    sync.RWMutex
	norms map[int64]float64
	terms *termCache
}

// Open opens an existing index and loads its norms. It fails with
// ErrStoreNotFound when no index has been built. The ranker owns the
// store and releases it on Close.
func Open(ctx context.Context, opts storage.Options) (*Ranker, error) {
	db, err := storage.OpenExisting(opts)
	if err != nil {
		return nil, err
	}
	r, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.db = db
	return r, nil
}

// New builds a ranker over a store owned by the caller.
func New(ctx context.Context, store Index) (*Ranker, error) {
	r := &Ranker{
		store:  store,
		logger: logger.WithComponent("ranker"),
		terms:  newTermCache(),
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the store if the ranker opened it.
func (r *Ranker) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Refresh reloads document norms and drops cached term ids.
func (r *Ranker) Refresh(ctx context.Context) error {
	norms, err := r.store.DocumentNorms(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.norms = norms
	r.mu.Unlock()
	r.terms.reset()

	r.logger.Debug("document norms loaded", "documents", len(norms))
	return nil
}

func (r *Ranker) norm(docID int64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.norms[docID]
}

type candidate struct {
	docID int64
	score float64
}

// Rank returns at most topK documents sorted by similarity, highest first,
// ties broken by ascending document id. Queries with no indexed terms or
// no positive match return an empty slice.
func (r *Ranker) Rank(ctx context.Context, queryTerms []string, topK int) ([]Result, error) {
	results := []Result{}
	if topK <= 0 {
		return results, nil
	}

	query, err := r.BuildQueryVector(ctx, queryTerms)
	if err != nil {
		return nil, err
	}
	if query.Empty() {
		return results, nil
	}

	dots := make(map[int64]float64)
	for _, term := range query.Terms {
		weight := query.Weights[term]
		if weight == 0 {
			continue
		}
		for _, p := range query.postings[term] {
			score := 0.0
			if p.Scored {
				score = p.TFIDF
			}
			dots[p.DocID] += weight * score
		}
	}

	candidates := make([]candidate, 0, len(dots))
	for docID, dot := range dots {
		similarity := CosineSimilarity(dot, query.Norm, r.norm(docID))
		if similarity <= 0 {
			continue
		}
		candidates = append(candidates, candidate{docID: docID, score: similarity})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].docID < candidates[j].docID
		}
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	for _, c := range candidates {
		doc, err := r.store.Document(ctx, c.docID)
		if errors.Is(err, apperrors.ErrDocumentNotFound) {
			r.logger.Warn("ranked document missing from index", "doc_id", c.docID)
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, Result{
			DocID: c.docID,
			Title: doc.Title,
			URL:   doc.URL,
			Score: c.score,
		})
	}

	return results, nil
}

// CosineSimilarity divides a dot product by the two vector norms, or
// returns 0 when either norm is 0.
func CosineSimilarity(dot, queryNorm, docNorm float64) float64 {
	if queryNorm == 0 || docNorm == 0 {
		return 0
	}
	return dot / (queryNorm * docNorm)
}

func (r *Ranker) Stats(ctx context.Context) (IndexStats, error) {
	s, err := r.store.Stats(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{
		TotalDocuments: s.Documents,
		TotalTerms:     s.Terms,
		TotalPostings:  s.Postings,
		StoreSize:      humanize.Bytes(uint64(s.SizeBytes)),
	}, nil
}

// CachedTerms returns the number of cached term ids.
func (r *Ranker) CachedTerms() int {
	return r.terms.len()
}
