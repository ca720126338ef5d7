package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/pai-gapfinder/internal/advisor"
	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/diagnosis"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/config"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log, os.Stdout))
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", envErr)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	b, err := connectBackends(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect backends", "error", err)
		os.Exit(1)
	}
	defer b.Close(context.Background())

	cat, err := loadCatalogue(ctx, cfg, b)
	if err != nil {
		slog.Error("failed to load catalogue", "source", cfg.Catalogue.Source, "error", err)
		os.Exit(1)
	}

	engine := diagnosis.NewEngine(cat, engineConfig(cfg.Engine))
	svc, err := newService(ctx, engine, cfg, b)
	if err != nil {
		slog.Error("failed to start advisor", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(&server{svc: svc, checks: b.checks()}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"addr", srv.Addr,
			"catalogue_version", cat.Version(),
			"topics", cat.Len(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func engineConfig(cfg config.EngineConfig) diagnosis.Config {
	return diagnosis.Config{
		ScheduleWeekCapHours:   cfg.ScheduleWeekCapHours,
		EstimateHoursPerWeek:   cfg.EstimateHoursPerWeek,
		EstimateIncludesTarget: cfg.EstimateIncludesTarget,
		ReportCycles:           cfg.ReportCycles,
	}
}

// loadCatalogue reads the catalogue from the configured source. Authoring
// defects are logged; the engine tolerates all of them.
func loadCatalogue(ctx context.Context, cfg *config.Config, b *backends) (*curriculum.Catalogue, error) {
	var src curriculum.Source

	switch cfg.Catalogue.Source {
	case config.SourcePostgres:
		pg, err := curriculum.NewPostgresSource(b.db.Pool)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		src = pg
	case config.SourceNeo4j:
		g, err := curriculum.NewNeo4jSource(b.graph.Driver, b.graph.Database)
		if err != nil {
			return nil, err
		}
		src = g
	case config.SourceXLSX:
		src = curriculum.XLSXSource{Path: cfg.Catalogue.Path}
	default:
		src = curriculum.DirSource{Root: cfg.Catalogue.Path}
	}

	cat, err := src.LoadCatalogue(ctx)
	if err != nil {
		return nil, err
	}

	if report := curriculum.Validate(cat); !report.OK() {
		slog.Warn("catalogue has authoring defects",
			"dangling", len(report.Dangling),
			"cycle_topics", len(report.CycleTopics),
			"problems", len(report.Problems),
			"error", report.Err(),
		)
	}
	return cat, nil
}

// newService wires the result cache and event log that the configured
// backends provide.
func newService(ctx context.Context, engine *diagnosis.Engine, cfg *config.Config, b *backends) (*advisor.Service, error) {
	var opts []advisor.Option

	if b.cache != nil {
		rc, err := advisor.NewRedisCache(b.cache.Client, time.Duration(cfg.Cache.TTL)*time.Minute)
		if err != nil {
			return nil, err
		}
		opts = append(opts, advisor.WithCache(rc))
	}

	if b.db != nil {
		events := advisor.NewPostgresEventLogger(b.db.Pool)
		if err := events.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, advisor.WithEventLogger(events))
	}

	return advisor.NewService(engine, opts...), nil
}
