// Package advisor serves diagnoses to the outer surfaces. It caches results
// per catalogue version, coalesces identical concurrent requests and records
// every diagnosis in the event log.
package advisor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/diagnosis"
)

const (
	cacheTimeout = 2 * time.Second
	keyPrefix    = "gapfinder:diagnosis:"
)

// Mode names the kind of diagnosis that was requested.
type Mode string

const (
	ModeLevel    Mode = "level"
	ModeKnownSet Mode = "known_set"
	ModePlan     Mode = "plan"
)

// Result is a diagnosis with its bookkeeping. ID identifies the event log
// entry; Cached is true when the value came from the result cache.
type Result[T any] struct {
	ID     string
	Value  T
	Cached bool
}

// Service runs diagnoses on behalf of the HTTP and WebSocket handlers.
type Service struct {
	engine *diagnosis.Engine
	cache  ResultCache
	events EventLogger
	group  singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCache stores results in c.
func WithCache(c ResultCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithEventLogger records diagnoses with l.
func WithEventLogger(l EventLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.events = l
		}
	}
}

// NewService creates a service around engine. Without options nothing is
// cached or logged.
func NewService(engine *diagnosis.Engine, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		cache:  NopCache{},
		events: NopEventLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying engine.
func (s *Service) Engine() *diagnosis.Engine {
	return s.engine
}

// Catalogue returns the catalogue the engine reads.
func (s *Service) Catalogue() *curriculum.Catalogue {
	return s.engine.Catalogue()
}

// DiagnoseLevel runs the depth-bounded diagnosis. An input without a topic
// or mastery level fails with diagnosis.ErrInvalidInput.
func (s *Service) DiagnoseLevel(ctx context.Context, in diagnosis.DiagnosticInput) (Result[diagnosis.DiagnosticOutput], error) {
	if err := in.Validate(); err != nil {
		return Result[diagnosis.DiagnosticOutput]{}, err
	}
	return run(ctx, s, ModeLevel, in.CurrentTopicCode, in, func() (diagnosis.DiagnosticOutput, error) {
		return s.engine.DiagnoseByLevel(in), nil
	}, summarizeOutput)
}

// DiagnoseKnownSet returns the gaps in the target's full prerequisite closure.
// An unknown target fails with diagnosis.ErrTopicNotFound.
func (s *Service) DiagnoseKnownSet(ctx context.Context, in diagnosis.KnownSetInput) (Result[[]diagnosis.Gap], error) {
	in = normalizeKnown(in)
	return run(ctx, s, ModeKnownSet, in.TargetTopicCode, in, func() ([]diagnosis.Gap, error) {
		return s.engine.DiagnoseByKnownSet(in.TargetTopicCode, in.KnownTopicCodes)
	}, func(gaps []diagnosis.Gap) map[string]any {
		return map[string]any{"missing": len(gaps)}
	})
}

// PlanKnownSet runs the closure diagnosis and schedules it.
func (s *Service) PlanKnownSet(ctx context.Context, in diagnosis.KnownSetInput) (Result[diagnosis.DiagnosticOutput], error) {
	in = normalizeKnown(in)
	return run(ctx, s, ModePlan, in.TargetTopicCode, in, func() (diagnosis.DiagnosticOutput, error) {
		return s.engine.PlanKnownSet(in.TargetTopicCode, in.KnownTopicCodes), nil
	}, summarizeOutput)
}

type outcome[T any] struct {
	value  T
	cached bool
}

// run answers from the cache when it can and computes otherwise. Concurrent
// calls with the same key share one computation.
func run[T any](
	ctx context.Context,
	s *Service,
	mode Mode,
	topic string,
	input any,
	compute func() (T, error),
	summarize func(T) map[string]any,
) (Result[T], error) {
	key, err := cacheKey(mode, s.engine.Fingerprint(), input)
	if err != nil {
		return Result[T]{}, err
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		if value, ok := lookup[T](ctx, s.cache, key); ok {
			return outcome[T]{value: value, cached: true}, nil
		}
		value, err := compute()
		if err != nil {
			return nil, err
		}
		store(ctx, s.cache, key, value)
		return outcome[T]{value: value}, nil
	})

	id := uuid.NewString()
	event := Event{
		ID:               id,
		EventType:        EventDiagnosisCompleted,
		Mode:             mode,
		TopicCode:        topic,
		CatalogueVersion: s.engine.Catalogue().Version(),
	}

	if err != nil {
		event.EventType = EventDiagnosisFailed
		event.Data = map[string]any{"error": err.Error()}
		s.logEvent(ctx, event)
		return Result[T]{}, err
	}

	out := v.(outcome[T])
	event.Data = summarize(out.value)
	event.Data["cached"] = out.cached
	event.Data["shared"] = shared
	s.logEvent(ctx, event)

	slog.Debug("diagnosis served",
		"diagnosis_id", id,
		"mode", mode,
		"topic", topic,
		"cached", out.cached,
		"shared", shared,
	)
	return Result[T]{ID: id, Value: out.value, Cached: out.cached}, nil
}

func (s *Service) logEvent(ctx context.Context, event Event) {
	if err := s.events.LogEvent(ctx, event); err != nil {
		slog.Warn("failed to log diagnosis event",
			"diagnosis_id", event.ID,
			"error", err,
		)
	}
}

// Cache failures are logged and treated as misses.
func lookup[T any](ctx context.Context, c ResultCache, key string) (T, bool) {
	var value T

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	data, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.Warn("result cache read failed", "key", key, "error", err)
		return value, false
	}
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("discarding undecodable cached result", "key", key, "error", err)
		return value, false
	}
	return value, true
}

func store[T any](ctx context.Context, c ResultCache, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("result not cacheable", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	if err := c.Set(ctx, key, data); err != nil {
		slog.Warn("result cache write failed", "key", key, "error", err)
	}
}

// cacheKey digests the mode, engine fingerprint and input. A changed
// catalogue or engine config never reads results computed under the old one.
func cacheKey(mode Mode, fingerprint string, input any) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encoding %s input: %w", mode, err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("creating key hash: %w", err)
	}
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(data)

	return keyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// normalizeKnown sorts and de-duplicates the known set so that requests
// differing only in order share a cache entry.
func normalizeKnown(in diagnosis.KnownSetInput) diagnosis.KnownSetInput {
	known := slices.Clone(in.KnownTopicCodes)
	slices.Sort(known)
	in.KnownTopicCodes = slices.Compact(known)
	return in
}

func summarizeOutput(out diagnosis.DiagnosticOutput) map[string]any {
	return map[string]any{
		"missing":         len(out.MissingPrerequisites),
		"estimated_weeks": out.EstimatedWeeks,
		"warnings":        len(out.Warnings),
		"grade_gap":       out.GradeGapLabel,
	}
}
