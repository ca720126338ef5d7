// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Catalogue sources.
const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
	SourceNeo4j    = "neo4j"
	SourceXLSX     = "xlsx"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Graph     GraphConfig
	Catalogue CatalogueConfig
	Engine    EngineConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout int // seconds
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL
// disables the event log and the postgres catalogue source.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL
// disables result caching.
type CacheConfig struct {
	URL string
	TTL int // minutes
}

// GraphConfig holds Neo4j connection settings for the graph catalogue source.
type GraphConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// CatalogueConfig selects where the topic catalogue is loaded from.
type CatalogueConfig struct {
	Source string // "dir", "postgres", "neo4j" or "xlsx"
	Path   string
}

// EngineConfig tunes diagnosis.
type EngineConfig struct {
	ScheduleWeekCapHours   float64
	EstimateHoursPerWeek   float64
	EstimateIncludesTarget bool
	ReportCycles           bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("LEARN_SERVER_PORT", 8080),
			Host:            envStr("LEARN_SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: envInt("LEARN_SERVER_SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", ""),
			TTL: envInt("LEARN_CACHE_TTL", 60),
		},
		Graph: GraphConfig{
			URI:      envStr("LEARN_GRAPH_URI", ""),
			User:     envStr("LEARN_GRAPH_USER", "neo4j"),
			Password: envStr("LEARN_GRAPH_PASSWORD", ""),
			Database: envStr("LEARN_GRAPH_DATABASE", "neo4j"),
		},
		Catalogue: CatalogueConfig{
			Source: strings.ToLower(envStr("LEARN_CATALOGUE_SOURCE", SourceDir)),
			Path:   envStr("LEARN_CATALOGUE_PATH", "./catalogue"),
		},
		Engine: EngineConfig{
			ScheduleWeekCapHours:   envFloat("LEARN_ENGINE_WEEK_CAP_HOURS", 6),
			EstimateHoursPerWeek:   envFloat("LEARN_ENGINE_HOURS_PER_WEEK", 3),
			EstimateIncludesTarget: envBool("LEARN_ENGINE_ESTIMATE_INCLUDES_TARGET", false),
			ReportCycles:           envBool("LEARN_ENGINE_REPORT_CYCLES", false),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envStr("LEARN_LOG_LEVEL", "info")),
			Format: strings.ToLower(envStr("LEARN_LOG_FORMAT", "json")),
		},
	}

	return cfg, nil
}

// Validate checks that the selected catalogue source has what it needs and
// that tuning values are in range.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be in 1..65535, got %d", c.Server.Port)
	}

	switch c.Catalogue.Source {
	case SourceDir, SourceXLSX:
		if c.Catalogue.Path == "" {
			return fmt.Errorf("LEARN_CATALOGUE_PATH is required for the %s source", c.Catalogue.Source)
		}
	case SourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("LEARN_DATABASE_URL is required for the postgres source")
		}
	case SourceNeo4j:
		if c.Graph.URI == "" {
			return fmt.Errorf("LEARN_GRAPH_URI is required for the neo4j source")
		}
	default:
		return fmt.Errorf("LEARN_CATALOGUE_SOURCE must be one of dir, postgres, neo4j, xlsx, got %q", c.Catalogue.Source)
	}

	if c.Engine.ScheduleWeekCapHours <= 0 {
		return fmt.Errorf("LEARN_ENGINE_WEEK_CAP_HOURS must be > 0, got %g", c.Engine.ScheduleWeekCapHours)
	}
	if c.Engine.EstimateHoursPerWeek <= 0 {
		return fmt.Errorf("LEARN_ENGINE_HOURS_PER_WEEK must be > 0, got %g", c.Engine.EstimateHoursPerWeek)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("LEARN_CACHE_TTL must not be negative, got %d", c.Cache.TTL)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// HasDatabase reports whether a PostgreSQL URL is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasCache reports whether a Redis/Dragonfly URL is configured.
func (c *Config) HasCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
