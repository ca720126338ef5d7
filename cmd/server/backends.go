package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-gapfinder/internal/platform/cache"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/config"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/database"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/graphdb"
)

// backends holds the external connections the server uses. Each one is nil
// when it is not configured.
type backends struct {
	db    *database.DB
	cache *cache.Cache
	graph *graphdb.Graph
}

// connectBackends opens every configured backend concurrently. The graph
// database is only dialled when it is the catalogue source.
func connectBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}
	g, gctx := errgroup.WithContext(ctx)

	if cfg.HasDatabase() {
		g.Go(func() error {
			db, err := database.New(gctx, database.Options{
				URL:             cfg.Database.URL,
				MaxConns:        cfg.Database.MaxConns,
				MinConns:        cfg.Database.MinConns,
				ApplicationName: "gapfinder-server",
			})
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			b.db = db
			return nil
		})
	}

	if cfg.HasCache() {
		g.Go(func() error {
			c, err := cache.New(gctx, cache.Options{URL: cfg.Cache.URL})
			if err != nil {
				return fmt.Errorf("cache: %w", err)
			}
			b.cache = c
			return nil
		})
	}

	if cfg.Catalogue.Source == config.SourceNeo4j {
		g.Go(func() error {
			gr, err := graphdb.New(gctx, graphdb.Options{
				URI:      cfg.Graph.URI,
				User:     cfg.Graph.User,
				Password: cfg.Graph.Password,
				Database: cfg.Graph.Database,
			})
			if err != nil {
				return fmt.Errorf("graph: %w", err)
			}
			b.graph = gr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		b.Close(context.Background())
		return nil, err
	}

	slog.Info("backends connected",
		"database", b.db != nil,
		"cache", b.cache != nil,
		"graph", b.graph != nil,
	)
	return b, nil
}

// checks returns a readiness probe per connected backend.
func (b *backends) checks() map[string]func(context.Context) error {
	out := make(map[string]func(context.Context) error)
	if b.db != nil {
		out["database"] = b.db.HealthCheck
	}
	if b.cache != nil {
		out["cache"] = b.cache.HealthCheck
	}
	if b.graph != nil {
		out["graph"] = b.graph.HealthCheck
	}
	return out
}

func (b *backends) Close(ctx context.Context) {
	if b.db != nil {
		b.db.Close()
	}
	if b.cache != nil {
		if err := b.cache.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	}
	if b.graph != nil {
		if err := b.graph.Close(ctx); err != nil {
			slog.Warn("closing graph driver", "error", err)
		}
	}
}
