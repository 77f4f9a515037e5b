// Package indexer turns raw documents into the inverted index and keeps
// its tf-idf scores current.
package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
	"github.com/deidaraiorek/gogol/internal/logger"
	"github.com/deidaraiorek/gogol/internal/metrics"
	"github.com/deidaraiorek/gogol/internal/source"
	"github.com/deidaraiorek/gogol/internal/storage"
	"github.com/deidaraiorek/gogol/internal/tokenizer"
)

// Analyzer produces the normalized terms of a document, with positions.
type Analyzer interface {
	NormalizeForIndex(text string) []tokenizer.Token
}

type IngestResult struct {
	Created         bool
	UniqueTermCount int
}

// Stats describes the index after a build. The batch counters are zero
// when Stats is returned by Indexer.Stats.
type Stats struct {
	DocsIndexed  int64  `json:"docs_indexed"`
	UniqueTerms  int64  `json:"unique_terms"`
	Postings     int64  `json:"postings"`
	DBSize       string `json:"db_size"`
	DBSizeBytes  int64  `json:"db_size_bytes"`
	NewDocuments int    `json:"new_documents"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	ScoresStale  bool   `json:"scores_stale"`
}

type Indexer struct {
	db       *storage.IndexDB
	analyzer Analyzer
	source   source.Source
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu          sync.Mutex
	listenersMu sync.Mutex
	listeners   []func()
}

type Option func(*Indexer)

func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Indexer) {
		idx.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(idx *Indexer) {
		idx.logger = l
	}
}

func NewIndexer(db *storage.IndexDB, analyzer Analyzer, src source.Source, opts ...Option) *Indexer {
	idx := &Indexer{
		db:       db,
		analyzer: analyzer,
		source:   src,
		logger:   logger.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// OnChange registers fn to run after a completed statistics pass or a
// clear. Listeners run synchronously on the building goroutine.
func (idx *Indexer) OnChange(fn func()) {
	idx.listenersMu.Lock()
	defer idx.listenersMu.Unlock()
	idx.listeners = append(idx.listeners, fn)
}

func (idx *Indexer) notify() {
	idx.listenersMu.Lock()
	listeners := append([]func(){}, idx.listeners...)
	idx.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Ingest adds one document to the index. A document whose URL hash is
// already present is left untouched and reported with Created false.
// Every write for the document happens in one transaction.
func (idx *Indexer) Ingest(ctx context.Context, raw source.RawDocument) (IngestResult, error) {
	if err := raw.Validate(); err != nil {
		return IngestResult{}, err
	}

	docHash := raw.Hash()
	terms := groupTerms(idx.analyzer.NormalizeForIndex(raw.Text))

	var result IngestResult
	err := idx.db.InTx(ctx, func(tx *sql.Tx) error {
		exists, err := idx.db.IsDocumentIndexed(ctx, tx, docHash)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		doc := &storage.Document{
			URL:        raw.URL,
			Title:      raw.Title,
			DocHash:    docHash,
			TextLength: utf8.RuneCountInString(raw.Text),
		}
		if _, err := idx.db.SaveDocumentInTransaction(ctx, tx, doc, terms); err != nil {
			return err
		}
		result = IngestResult{Created: true, UniqueTermCount: len(terms)}
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}
	return result, nil
}

// groupTerms folds analyzer output into per-term frequency and positions.
func groupTerms(tokens []tokenizer.Token) map[string]storage.TermStats {
	terms := make(map[string]storage.TermStats)
	for _, token := range tokens {
		stats := terms[token.Term]
		stats.Frequency++
		stats.Positions = append(stats.Positions, token.Position)
		terms[token.Term] = stats
	}
	return terms
}

// BuildIndex ingests every document of the source. With force the index is
// cleared first; the clear and the re-ingestion are separate steps. A
// document that fails to load or ingest is logged and skipped. When at
// least one document was created the statistics pass runs; if it fails the
// returned stats carry ScoresStale and the error wraps ErrStaleScores.
func (idx *Indexer) BuildIndex(ctx context.Context, force bool) (Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := time.Now()

	if force {
		idx.logger.Info("clearing index before rebuild")
		if err := idx.clear(ctx); err != nil {
			return Stats{}, err
		}
	}

	names, err := idx.source.Names(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing raw documents: %w", err)
	}
	idx.logger.Info("starting index build", "documents", len(names), "force", force)

	var created, skipped, failed int
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}

		raw, err := idx.source.Load(ctx, name)
		if err != nil {
			failed++
			idx.observeFailure(name, err)
			continue
		}

		result, err := idx.Ingest(ctx, raw)
		if err != nil {
			failed++
			idx.observeFailure(name, err)
			continue
		}

		if !result.Created {
			skipped++
			idx.metrics.ObserveIngest("duplicate")
			idx.logger.Debug("document already indexed", "progress", progress(i, len(names)), "name", name)
			continue
		}
		created++
		idx.metrics.ObserveIngest("created")
		idx.logger.Info("document indexed",
			"progress", progress(i, len(names)),
			"name", name,
			"unique_terms", result.UniqueTermCount,
		)
	}

	var passErr error
	scored := false
	if created > 0 {
		passErr = idx.recomputeStatistics(ctx)
		scored = passErr == nil
	}
	if force && !scored {
		// the clear removed documents that listeners may still cache
		idx.notify()
	}

	stats, err := idx.stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.NewDocuments = created
	stats.Skipped = skipped
	stats.Failed = failed
	idx.metrics.SetIndexDocuments(stats.DocsIndexed)

	idx.logger.Info("index build finished",
		"new_documents", created,
		"skipped", skipped,
		"failed", failed,
		"docs_indexed", stats.DocsIndexed,
		"unique_terms", stats.UniqueTerms,
		"postings", stats.Postings,
		"db_size", stats.DBSize,
		"elapsed", time.Since(start),
	)

	if passErr != nil {
		stats.ScoresStale = true
		return stats, passErr
	}
	return stats, nil
}

func (idx *Indexer) observeFailure(name string, err error) {
	if errors.Is(err, apperrors.ErrInvalidInput) {
		idx.metrics.ObserveIngest("invalid")
		idx.logger.Warn("skipping malformed document", "name", name, "error", err)
		return
	}
	idx.metrics.ObserveIngest("failed")
	idx.logger.Error("failed to index document", "name", name, "error", err)
}

func progress(i, total int) string {
	return fmt.Sprintf("%d/%d", i+1, total)
}

// RecomputeStatistics runs the statistics pass on demand.
func (idx *Indexer) RecomputeStatistics(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.recomputeStatistics(ctx)
}

// recomputeStatistics treats an empty corpus as a skipped pass. Any other
// failure leaves the previous scores in place and wraps ErrStaleScores.
func (idx *Indexer) recomputeStatistics(ctx context.Context) error {
	start := time.Now()
	idx.logger.Info("computing tf-idf scores")

	result, err := idx.db.RecalculateTFIDF(ctx)
	switch {
	case errors.Is(err, apperrors.ErrEmptyIndex):
		idx.metrics.ObserveStatsPass("skipped", time.Since(start))
		idx.logger.Warn("no documents to score, skipping statistics pass")
		return nil
	case err != nil:
		idx.metrics.ObserveStatsPass("failed", time.Since(start))
		idx.logger.Error("statistics pass failed, scores are stale", "error", err)
		return fmt.Errorf("%w: %w", apperrors.ErrStaleScores, err)
	}

	idx.metrics.ObserveStatsPass("ok", time.Since(start))
	idx.logger.Info("tf-idf scores computed",
		"total_docs", result.TotalDocs,
		"postings", result.Postings,
		"elapsed", time.Since(start),
	)
	idx.notify()
	return nil
}

// Clear deletes every document, term, posting and metadata row.
func (idx *Indexer) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.clear(ctx); err != nil {
		return err
	}
	idx.notify()
	return nil
}

func (idx *Indexer) clear(ctx context.Context) error {
	if err := idx.db.Reset(ctx); err != nil {
		return err
	}
	idx.metrics.SetIndexDocuments(0)
	return nil
}

func (idx *Indexer) Stats(ctx context.Context) (Stats, error) {
	return idx.stats(ctx)
}

func (idx *Indexer) stats(ctx context.Context) (Stats, error) {
	s, err := idx.db.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	stale, err := idx.db.HasUnscoredPostings(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		DocsIndexed: s.Documents,
		UniqueTerms: s.Terms,
		Postings:    s.Postings,
		DBSize:      humanize.Bytes(uint64(s.SizeBytes)),
		DBSizeBytes: s.SizeBytes,
		ScoresStale: stale,
	}, nil
}

// Verify returns the terms whose document frequency disagrees with their
// postings.
func (idx *Indexer) Verify(ctx context.Context) ([]storage.Inconsistency, error) {
	return idx.db.CheckConsistency(ctx)
}
