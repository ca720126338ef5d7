package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-gapfinder/internal/platform/database"
)

const dbTimeout = 5 * time.Second

const (
	EventDiagnosisCompleted = "diagnosis_completed"
	EventDiagnosisFailed    = "diagnosis_failed"
)

// EventsSchema creates the diagnosis event log table.
const EventsSchema = `
CREATE TABLE IF NOT EXISTS diagnosis_events (
	id                UUID PRIMARY KEY,
	event_type        TEXT NOT NULL,
	mode              TEXT NOT NULL,
	topic_code        TEXT NOT NULL,
	catalogue_version TEXT NOT NULL,
	data              JSONB NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS diagnosis_events_topic_idx ON diagnosis_events (topic_code, created_at);`

// Event is one diagnosis recorded for analytics.
type Event struct {
	ID               string
	EventType        string
	Mode             Mode
	TopicCode        string
	CatalogueVersion string
	Data             map[string]any
	CreatedAt        time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the diagnosis_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

// EnsureSchema creates the event table if it does not exist.
func (l *PostgresEventLogger) EnsureSchema(ctx context.Context) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return database.Migrate(ctx, l.pool, "diagnosis_events", EventsSchema)
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO diagnosis_events (id, event_type, mode, topic_code, catalogue_version, data, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6::jsonb, $7)`,
		event.ID,
		event.EventType,
		string(event.Mode),
		event.TopicCode,
		event.CatalogueVersion,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"diagnosis_id", event.ID,
		"topic", event.TopicCode,
	)
	return nil
}
