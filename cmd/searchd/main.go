package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/deidaraiorek/gogol/internal/api"
	"github.com/deidaraiorek/gogol/internal/cache"
	"github.com/deidaraiorek/gogol/internal/config"
	"github.com/deidaraiorek/gogol/internal/logger"
	"github.com/deidaraiorek/gogol/internal/metrics"
	"github.com/deidaraiorek/gogol/internal/search"
	"github.com/deidaraiorek/gogol/internal/source"
	"github.com/deidaraiorek/gogol/internal/storage"
	"github.com/deidaraiorek/gogol/internal/textprocessor"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .toml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting search service", "port", cfg.Server.Port, "index", cfg.Storage.Path)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

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
		slog.Warn("document source unavailable, rebuilds disabled", "error", err)
	} else if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	var queryCache *cache.QueryCache[search.Response]
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer client.Close()
			queryCache = cache.New[search.Response](client, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	svc, err := search.NewService(ctx, search.Options{
		Storage:  storage.Options{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path},
		Analyzer: analyzer,
		Source:   src,
		Cache:    queryCache,
		Metrics:  m,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	if m != nil && cfg.Metrics.Port != 0 && cfg.Metrics.Port != cfg.Server.Port {
		metricsServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: m.Handler(),
		}
		go func() {
			slog.Info("metrics listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		}()
		defer metricsServer.Close()
	}

	handler := api.NewHandler(svc, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, m, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "index_ready", svc.Ready())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
