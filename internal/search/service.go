// Package search is the boundary between the engine and its callers: it
// analyzes queries, ranks, formats results and keeps index rebuilds from
// overlapping with queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/deidaraiorek/gogol/internal/cache"
	apperrors "github.com/deidaraiorek/gogol/internal/errors"
	"github.com/deidaraiorek/gogol/internal/indexer"
	"github.com/deidaraiorek/gogol/internal/logger"
	"github.com/deidaraiorek/gogol/internal/metrics"
	"github.com/deidaraiorek/gogol/internal/ranker"
	"github.com/deidaraiorek/gogol/internal/source"
	"github.com/deidaraiorek/gogol/internal/storage"
	"github.com/deidaraiorek/gogol/internal/textprocessor"
)

type Response struct {
	Query          string          `json:"query"`
	ProcessedTerms []string        `json:"processed_terms"`
	TotalResults   int             `json:"total_results"`
	Results        []ranker.Result `json:"results"`
}

type Options struct {
	Storage  storage.Options
	Analyzer *textprocessor.TextProcessor
	Source   source.Source
	Cache    *cache.QueryCache[Response]
	Metrics  *metrics.Metrics
}

// Service owns the index store. BuildIndex takes the write lock; Search
// and Stats share the read lock, so queries never observe a build in
// progress.
type Service struct {
	opts   Options
	logger *slog.Logger

	mu      sync.RWMutex
	db      *storage.IndexDB
	indexer *indexer.Indexer
	ranker  *ranker.Ranker
}

// NewService opens the index if one exists. When none has been built yet
// the service starts without it and reports not ready until BuildIndex
// creates it.
func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.Analyzer == nil {
		opts.Analyzer = textprocessor.NewTextProcessor()
	}
	s := &Service{
		opts:   opts,
		logger: logger.WithComponent("search"),
	}

	db, err := storage.OpenExisting(opts.Storage)
	if errors.Is(err, apperrors.ErrStoreNotFound) {
		s.logger.Warn("no index found, run a build before searching", "path", opts.Storage.Path)
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.attach(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) attach(ctx context.Context, db *storage.IndexDB) error {
	r, err := ranker.New(ctx, db)
	if err != nil {
		return err
	}
	idx := indexer.NewIndexer(db, s.opts.Analyzer, s.opts.Source, indexer.WithMetrics(s.opts.Metrics))
	idx.OnChange(s.invalidate)

	s.db = db
	s.ranker = r
	s.indexer = idx

	if stats, err := idx.Stats(ctx); err == nil {
		s.opts.Metrics.SetIndexDocuments(stats.DocsIndexed)
	}
	return nil
}

// invalidate runs on the building goroutine while the write lock is held.
func (s *Service) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.ranker.Refresh(ctx); err != nil {
		s.logger.Error("failed to refresh ranker", "error", err)
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(ctx); err != nil {
			s.logger.Error("failed to invalidate result cache", "error", err)
		}
	}
}

// Ready reports whether an index store is open.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ranker != nil
}

func errNotReady() error {
	return apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "index has not been built yet")
}

// BuildIndex creates the store if needed and rebuilds the index from the
// configured source.
func (s *Service) BuildIndex(ctx context.Context, force bool) (indexer.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Source == nil {
		return indexer.Stats{}, fmt.Errorf("%w: no document source configured", apperrors.ErrUnsupportedOption)
	}
	if s.ranker == nil {
		db, err := storage.Open(s.opts.Storage)
		if err != nil {
			return indexer.Stats{}, err
		}
		if err := s.attach(ctx, db); err != nil {
			db.Close()
			return indexer.Stats{}, err
		}
	}

	return s.indexer.BuildIndex(ctx, force)
}

// Stats reports the size of the index.
func (s *Service) Stats(ctx context.Context) (indexer.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.indexer == nil {
		return indexer.Stats{}, errNotReady()
	}
	return s.indexer.Stats(ctx)
}

// Verify lists terms whose document frequency disagrees with their postings.
func (s *Service) Verify(ctx context.Context) ([]storage.Inconsistency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.indexer == nil {
		return nil, errNotReady()
	}
	return s.indexer.Verify(ctx)
}

// Search returns up to topK documents for query. A query with no usable
// terms is answered with empty terms and results.
func (s *Service) Search(ctx context.Context, query string, topK int) (Response, error) {
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ranker == nil {
		s.opts.Metrics.ObserveSearch("error", 0, time.Since(start))
		return Response{}, errNotReady()
	}

	terms := s.opts.Analyzer.NormalizeForQuery(query)
	if len(terms) == 0 || topK <= 0 {
		s.opts.Metrics.ObserveSearch("zero_result", 0, time.Since(start))
		return Response{Query: query, ProcessedTerms: nonNil(terms), Results: []ranker.Result{}}, nil
	}

	compute := func() (Response, error) {
		return s.search(ctx, query, terms, topK)
	}

	var resp Response
	var err error
	cacheHit := false
	if s.opts.Cache != nil {
		resp, cacheHit, err = s.opts.Cache.GetOrCompute(ctx, query, topK, compute)
	} else {
		resp, err = compute()
	}
	if err != nil {
		s.opts.Metrics.ObserveSearch("error", 0, time.Since(start))
		return Response{}, err
	}
	// cached responses are shared by queries that differ only in case or spacing
	resp.Query = query

	resultType := "hit"
	if resp.TotalResults == 0 {
		resultType = "zero_result"
	}
	s.opts.Metrics.ObserveSearch(resultType, resp.TotalResults, time.Since(start))

	logger.FromContext(ctx).Info("search completed",
		"query", query,
		"terms", len(terms),
		"results", resp.TotalResults,
		"cache_hit", cacheHit,
		"latency", time.Since(start),
	)
	return resp, nil
}

func (s *Service) search(ctx context.Context, query string, terms []string, topK int) (Response, error) {
	results, err := s.ranker.Rank(ctx, terms, topK)
	if err != nil {
		return Response{}, err
	}
	for i := range results {
		results[i].Score = roundScore(results[i].Score)
	}
	return Response{
		Query:          query,
		ProcessedTerms: terms,
		TotalResults:   len(results),
		Results:        results,
	}, nil
}

func roundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}

func nonNil(terms []string) []string {
	if terms == nil {
		return []string{}
	}
	return terms
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db, s.ranker, s.indexer = nil, nil, nil
	return err
}
