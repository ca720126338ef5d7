// Package graphdb provides Neo4j driver management.
package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Graph wraps a Neo4j driver and the database to query.
type Graph struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// Options holds connection settings.
type Options struct {
	URI         string
	User        string
	Password    string
	Database    string
	MaxPoolSize int
	Timeout     time.Duration
}

// New creates a driver and verifies connectivity.
func New(ctx context.Context, opts Options) (*Graph, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("graph URI is empty")
	}
	if opts.User == "" {
		opts.User = "neo4j"
	}
	if opts.MaxPoolSize <= 0 {
		opts.MaxPoolSize = 50
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	auth := neo4j.BasicAuth(opts.User, opts.Password, "")
	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = opts.MaxPoolSize
		cfg.SocketConnectTimeout = opts.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("creating graph driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying graph connectivity: %w", err)
	}

	return &Graph{Driver: driver, Database: opts.Database}, nil
}

// Close shuts down the driver.
func (g *Graph) Close(ctx context.Context) error {
	if g == nil || g.Driver == nil {
		return nil
	}
	return g.Driver.Close(ctx)
}

// HealthCheck verifies the graph database is reachable.
func (g *Graph) HealthCheck(ctx context.Context) error {
	return g.Driver.VerifyConnectivity(ctx)
}
