package curriculum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jSource loads the catalogue from a property graph:
//
//	(:Grade {label, ordinal})
//	(:Topic {code, display_name, grade_level, category, estimated_hours,
//	         difficulty, common_gaps, tutor_tips})
//	(:Topic)-[:REQUIRES {position}]->(:Topic)
//	(:Topic)-[:TYPICAL_GAP {position, source}]->(:Topic)
type Neo4jSource struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jSource creates a graph-backed catalogue source.
func NewNeo4jSource(driver neo4j.DriverWithContext, database string) (*Neo4jSource, error) {
	if driver == nil {
		return nil, fmt.Errorf("driver is nil")
	}
	return &Neo4jSource{driver: driver, database: database}, nil
}

const (
	cypherGrades = `MATCH (g:Grade) RETURN g.label AS label ORDER BY g.ordinal ASC`

	cypherTopics = `MATCH (t:Topic)
OPTIONAL MATCH (t)-[r:REQUIRES]->(p:Topic)
WITH t, r, p ORDER BY r.position ASC
RETURN t.code AS code,
       t.display_name AS display_name,
       t.grade_level AS grade_level,
       t.category AS category,
       toFloat(t.estimated_hours) AS estimated_hours,
       toInteger(t.difficulty) AS difficulty,
       coalesce(t.common_gaps, []) AS common_gaps,
       coalesce(t.tutor_tips, []) AS tutor_tips,
       [c IN collect(p.code) WHERE c IS NOT NULL] AS prerequisites
ORDER BY code ASC`

	cypherGapPatterns = `MATCH (t:Topic)-[g:TYPICAL_GAP]->(p:Topic)
WITH t, g, p ORDER BY g.position ASC
RETURN t.code AS code, collect(p.code) AS real_gaps, coalesce(head(collect(g.source)), '') AS source
ORDER BY code ASC`
)

func (s *Neo4jSource) LoadCatalogue(ctx context.Context) (*Catalogue, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc Document

	grades, err := s.query(ctx, cypherGrades)
	if err != nil {
		return nil, fmt.Errorf("query grades: %w", err)
	}
	for _, rec := range grades {
		label, _, err := neo4j.GetRecordValue[string](rec, "label")
		if err != nil {
			return nil, fmt.Errorf("read grade: %w", err)
		}
		doc.Grades = append(doc.Grades, label)
	}

	topics, err := s.query(ctx, cypherTopics)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	for _, rec := range topics {
		t, err := topicFromRecord(rec)
		if err != nil {
			return nil, err
		}
		doc.Topics = append(doc.Topics, t)
	}

	patterns, err := s.query(ctx, cypherGapPatterns)
	if err != nil {
		return nil, fmt.Errorf("query gap patterns: %w", err)
	}
	for _, rec := range patterns {
		var p GapPattern
		if p.Code, _, err = neo4j.GetRecordValue[string](rec, "code"); err != nil {
			return nil, fmt.Errorf("read gap pattern: %w", err)
		}
		if p.RealGapCodes, err = stringList(rec, "real_gaps"); err != nil {
			return nil, fmt.Errorf("read gap pattern %q: %w", p.Code, err)
		}
		if p.Source, _, err = neo4j.GetRecordValue[string](rec, "source"); err != nil {
			return nil, fmt.Errorf("read gap pattern %q: %w", p.Code, err)
		}
		doc.GapPatterns = append(doc.GapPatterns, p)
	}

	slog.Info("curriculum loaded from graph",
		"topics", len(doc.Topics),
		"gap_patterns", len(doc.GapPatterns),
	)
	return BuildCatalogue(doc)
}

func (s *Neo4jSource) query(ctx context.Context, cypher string) ([]*neo4j.Record, error) {
	res, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func topicFromRecord(rec *neo4j.Record) (TopicNode, error) {
	var t TopicNode
	var err error

	if t.Code, _, err = neo4j.GetRecordValue[string](rec, "code"); err != nil {
		return t, fmt.Errorf("read topic code: %w", err)
	}
	wrap := func(field string, err error) error {
		return fmt.Errorf("read topic %q %s: %w", t.Code, field, err)
	}

	if t.DisplayName, _, err = neo4j.GetRecordValue[string](rec, "display_name"); err != nil {
		return t, wrap("display_name", err)
	}
	if t.GradeLevel, _, err = neo4j.GetRecordValue[string](rec, "grade_level"); err != nil {
		return t, wrap("grade_level", err)
	}
	category, _, err := neo4j.GetRecordValue[string](rec, "category")
	if err != nil {
		return t, wrap("category", err)
	}
	t.Category = Category(category)
	if t.EstimatedHours, _, err = neo4j.GetRecordValue[float64](rec, "estimated_hours"); err != nil {
		return t, wrap("estimated_hours", err)
	}
	difficulty, _, err := neo4j.GetRecordValue[int64](rec, "difficulty")
	if err != nil {
		return t, wrap("difficulty", err)
	}
	t.DifficultyRating = int(difficulty)
	if t.CommonGapDescriptions, err = stringList(rec, "common_gaps"); err != nil {
		return t, wrap("common_gaps", err)
	}
	if t.TutorTips, err = stringList(rec, "tutor_tips"); err != nil {
		return t, wrap("tutor_tips", err)
	}
	if t.PrerequisiteCodes, err = stringList(rec, "prerequisites"); err != nil {
		return t, wrap("prerequisites", err)
	}
	return t, nil
}

func stringList(rec *neo4j.Record, key string) ([]string, error) {
	raw, isNil, err := neo4j.GetRecordValue[[]any](rec, key)
	if err != nil || isNil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: element %v is %T, not string", key, v, v)
		}
		out = append(out, s)
	}
	return out, nil
}
