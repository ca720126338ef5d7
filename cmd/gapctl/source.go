package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/config"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/database"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/graphdb"
)

// loadRemoteCatalogue reads the catalogue from the database named by
// LEARN_CATALOGUE_SOURCE.
func loadRemoteCatalogue(ctx context.Context, cfg *config.Config) (*curriculum.Catalogue, error) {
	switch cfg.Catalogue.Source {
	case config.SourcePostgres:
		db, err := database.New(ctx, database.Options{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			ApplicationName: "gapctl",
		})
		if err != nil {
			return nil, err
		}
		defer db.Close()

		src, err := curriculum.NewPostgresSource(db.Pool)
		if err != nil {
			return nil, err
		}
		slog.Debug("loading catalogue", "source", config.SourcePostgres)
		return src.LoadCatalogue(ctx)

	case config.SourceNeo4j:
		gr, err := graphdb.New(ctx, graphdb.Options{
			URI:      cfg.Graph.URI,
			User:     cfg.Graph.User,
			Password: cfg.Graph.Password,
			Database: cfg.Graph.Database,
		})
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := gr.Close(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("closing graph driver", "error", err)
			}
		}()

		src, err := curriculum.NewNeo4jSource(gr.Driver, gr.Database)
		if err != nil {
			return nil, err
		}
		slog.Debug("loading catalogue", "source", config.SourceNeo4j)
		return src.LoadCatalogue(ctx)
	}
	return nil, fmt.Errorf("catalogue source %q is not a database", cfg.Catalogue.Source)
}
