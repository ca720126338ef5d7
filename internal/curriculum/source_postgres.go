package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-gapfinder/internal/platform/database"
)

const dbTimeout = 10 * time.Second

// PostgresSchema creates the catalogue tables.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS grade_levels (
	label   TEXT PRIMARY KEY,
	ordinal INT  NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS topics (
	code            TEXT PRIMARY KEY,
	display_name    TEXT NOT NULL,
	grade_level     TEXT NOT NULL,
	category        TEXT NOT NULL,
	estimated_hours DOUBLE PRECISION NOT NULL,
	difficulty      INT NOT NULL,
	common_gaps     TEXT[] NOT NULL DEFAULT '{}',
	tutor_tips      TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS topic_prerequisites (
	topic_code        TEXT NOT NULL REFERENCES topics(code) ON DELETE CASCADE,
	prerequisite_code TEXT NOT NULL,
	position          INT  NOT NULL,
	PRIMARY KEY (topic_code, position)
);
CREATE TABLE IF NOT EXISTS gap_patterns (
	code      TEXT PRIMARY KEY,
	real_gaps TEXT[] NOT NULL,
	source    TEXT NOT NULL DEFAULT ''
);`

// PostgresSource loads the catalogue from PostgreSQL. prerequisite_code has
// no foreign key: the catalogue is allowed to be partial.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a PostgreSQL-backed catalogue source.
func NewPostgresSource(pool *pgxpool.Pool) (*PostgresSource, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresSource{pool: pool}, nil
}

// EnsureSchema creates the catalogue tables if they do not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return database.Migrate(ctx, s.pool, "catalogue", PostgresSchema)
}

func (s *PostgresSource) LoadCatalogue(ctx context.Context) (*Catalogue, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc Document

	grades, err := s.pool.Query(ctx, `SELECT label FROM grade_levels ORDER BY ordinal ASC`)
	if err != nil {
		return nil, fmt.Errorf("query grade levels: %w", err)
	}
	doc.Grades, err = pgx.CollectRows(grades, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan grade levels: %w", err)
	}

	prereqs, err := s.loadPrerequisites(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT code, display_name, grade_level, category, estimated_hours, difficulty, common_gaps, tutor_tips
		 FROM topics
		 ORDER BY code ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t TopicNode
		var category string
		if err := rows.Scan(
			&t.Code,
			&t.DisplayName,
			&t.GradeLevel,
			&category,
			&t.EstimatedHours,
			&t.DifficultyRating,
			&t.CommonGapDescriptions,
			&t.TutorTips,
		); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		t.Category = Category(category)
		t.PrerequisiteCodes = prereqs[t.Code]
		doc.Topics = append(doc.Topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}

	patterns, err := s.pool.Query(ctx, `SELECT code, real_gaps, source FROM gap_patterns ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("query gap patterns: %w", err)
	}
	doc.GapPatterns, err = pgx.CollectRows(patterns, func(row pgx.CollectableRow) (GapPattern, error) {
		var p GapPattern
		err := row.Scan(&p.Code, &p.RealGapCodes, &p.Source)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan gap patterns: %w", err)
	}

	slog.Info("curriculum loaded from postgres",
		"topics", len(doc.Topics),
		"gap_patterns", len(doc.GapPatterns),
	)
	return BuildCatalogue(doc)
}

func (s *PostgresSource) loadPrerequisites(ctx context.Context) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT topic_code, prerequisite_code
		 FROM topic_prerequisites
		 ORDER BY topic_code ASC, position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query prerequisites: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var topic, prereq string
		if err := rows.Scan(&topic, &prereq); err != nil {
			return nil, fmt.Errorf("scan prerequisite: %w", err)
		}
		out[topic] = append(out[topic], prereq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prerequisites: %w", err)
	}
	return out, nil
}

// Import replaces the stored catalogue with doc in a single transaction.
func (s *PostgresSource) Import(ctx context.Context, doc Document) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM topic_prerequisites`,
		`DELETE FROM topics`,
		`DELETE FROM gap_patterns`,
		`DELETE FROM grade_levels`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clear catalogue: %w", err)
		}
	}

	for i, label := range doc.Grades {
		if _, err := tx.Exec(ctx,
			`INSERT INTO grade_levels (label, ordinal) VALUES ($1, $2)`,
			label, i,
		); err != nil {
			return fmt.Errorf("insert grade %q: %w", label, err)
		}
	}

	for _, t := range doc.Topics {
		if _, err := tx.Exec(ctx,
			`INSERT INTO topics (code, display_name, grade_level, category, estimated_hours, difficulty, common_gaps, tutor_tips)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.Code,
			t.DisplayName,
			t.GradeLevel,
			string(t.Category),
			t.EstimatedHours,
			t.DifficultyRating,
			nonNil(t.CommonGapDescriptions),
			nonNil(t.TutorTips),
		); err != nil {
			return fmt.Errorf("insert topic %q: %w", t.Code, err)
		}
	}
	// Prerequisites go in after every topic exists so the foreign key on
	// topic_code holds regardless of document order.
	for _, t := range doc.Topics {
		for pos, p := range t.PrerequisiteCodes {
			if _, err := tx.Exec(ctx,
				`INSERT INTO topic_prerequisites (topic_code, prerequisite_code, position) VALUES ($1, $2, $3)`,
				t.Code, p, pos,
			); err != nil {
				return fmt.Errorf("insert prerequisite %q of %q: %w", p, t.Code, err)
			}
		}
	}

	for _, p := range doc.GapPatterns {
		if _, err := tx.Exec(ctx,
			`INSERT INTO gap_patterns (code, real_gaps, source) VALUES ($1, $2, $3)`,
			p.Code, nonNil(p.RealGapCodes), p.Source,
		); err != nil {
			return fmt.Errorf("insert gap pattern %q: %w", p.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
