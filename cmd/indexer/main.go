package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/deidaraiorek/gogol/internal/config"
	"github.com/deidaraiorek/gogol/internal/logger"
	"github.com/deidaraiorek/gogol/internal/search"
	"github.com/deidaraiorek/gogol/internal/source"
	"github.com/deidaraiorek/gogol/internal/storage"
	"github.com/deidaraiorek/gogol/internal/textprocessor"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .toml config file")
	force := flag.Bool("force", false, "clear the index before building")
	statsOnly := flag.Bool("stats", false, "print index statistics without building")
	verify := flag.Bool("verify", false, "check document frequencies against postings")
	query := flag.String("query", "", "run a search against the index after building")
	limit := flag.Int("limit", 10, "number of results for -query")
	flag.Parse()

	if err := run(*configPath, *force, *statsOnly, *verify, *query, *limit); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, force, statsOnly, verify bool, query string, limit int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCloser, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	analyzer, err := textprocessor.New(textprocessor.Options{
		Language:      cfg.Analyzer.Language,
		MinWordLength: cfg.Analyzer.MinWordLength,
		MaxWordLength: cfg.Analyzer.MaxWordLength,
		StopWords:     cfg.Analyzer.StopWords,
	})
	if err != nil {
		return err
	}

	src, err := source.Open(cfg.Source.Type, cfg.Source.Path)
	if err != nil {
		return err
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting indexer",
		"source", cfg.Source.Type,
		"source_path", cfg.Source.Path,
		"index", cfg.Storage.Path,
		"driver", cfg.Storage.Driver,
		"force", force,
	)

	svc, err := search.NewService(ctx, search.Options{
		Storage:  storage.Options{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path},
		Analyzer: analyzer,
		Source:   src,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	if !statsOnly {
		stats, err := svc.BuildIndex(ctx, force)
		if err != nil {
			return err
		}
		slog.Info("indexing completed",
			"new_documents", stats.NewDocuments,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
		)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("documents: %d\nterms:     %d\npostings:  %d\nsize:      %s\n",
		stats.DocsIndexed, stats.UniqueTerms, stats.Postings, stats.DBSize)
	if stats.ScoresStale {
		fmt.Println("warning: tf-idf scores are stale, rerun the indexer")
	}

	if verify {
		problems, err := svc.Verify(ctx)
		if err != nil {
			return err
		}
		for _, p := range problems {
			fmt.Printf("inconsistent term %q: document_frequency=%d postings=%d\n", p.Term, p.DocumentFrequency, p.Postings)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d inconsistent terms", len(problems))
		}
		fmt.Println("index is consistent")
	}

	if query != "" {
		resp, err := svc.Search(ctx, query, limit)
		if err != nil {
			return err
		}
		fmt.Printf("\n%d results for %q (terms %v)\n", resp.TotalResults, resp.Query, resp.ProcessedTerms)
		for i, r := range resp.Results {
			fmt.Printf("%2d. %.4f  %s\n    %s\n", i+1, r.Score, r.Title, r.URL)
		}
	}
	return nil
}
