package curriculum

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Catalogue is an immutable directed graph of topics keyed by code. It is
// built once at start-up and shared read-only by every diagnosis.
//
// A prerequisite code that does not resolve is treated as absent. The
// catalogue is meant to be acyclic but nothing here relies on it.
type Catalogue struct {
	topics     []TopicNode
	byCode     map[string]int
	byGrade    map[string][]TopicNode
	byCategory map[Category][]TopicNode
	grades     GradeScale
	patterns   GapPatternTable
	version    string
}

// Resolution is the result of looking a code up in the catalogue. Found is
// false for codes that are not in the catalogue.
type Resolution struct {
	Node  TopicNode
	Found bool
}

// NewCatalogue builds a catalogue from topics. Codes must be non-empty and
// unique; everything else (dangling references, cycles) is tolerated.
func NewCatalogue(topics []TopicNode, grades GradeScale, patterns GapPatternTable) (*Catalogue, error) {
	c := &Catalogue{
		topics:     make([]TopicNode, 0, len(topics)),
		byCode:     make(map[string]int, len(topics)),
		byGrade:    make(map[string][]TopicNode),
		byCategory: make(map[Category][]TopicNode),
		grades:     grades,
		patterns:   patterns,
	}

	for _, t := range topics {
		if t.Code == "" {
			return nil, fmt.Errorf("topic %q has an empty code", t.DisplayName)
		}
		if _, dup := c.byCode[t.Code]; dup {
			return nil, fmt.Errorf("duplicate topic code: %q", t.Code)
		}
		c.byCode[t.Code] = len(c.topics)
		c.topics = append(c.topics, cloneTopic(t))
	}

	sorted := slices.Clone(c.topics)
	slices.SortFunc(sorted, func(a, b TopicNode) int {
		return strings.Compare(a.Code, b.Code)
	})

	// Grade lists are ordered by category then code; category lists by
	// grade ordinal then code.
	catIdx := make(map[Category]int)
	for i, cat := range AllCategories() {
		catIdx[cat] = i
	}
	for _, t := range sorted {
		c.byGrade[t.GradeLevel] = append(c.byGrade[t.GradeLevel], t)
		c.byCategory[t.Category] = append(c.byCategory[t.Category], t)
	}
	for _, list := range c.byGrade {
		slices.SortStableFunc(list, func(a, b TopicNode) int {
			return rank(catIdx, a.Category) - rank(catIdx, b.Category)
		})
	}
	for _, list := range c.byCategory {
		slices.SortStableFunc(list, func(a, b TopicNode) int {
			return c.gradeRank(a.GradeLevel) - c.gradeRank(b.GradeLevel)
		})
	}

	v, err := digest(sorted, grades.Labels(), patterns.All())
	if err != nil {
		return nil, fmt.Errorf("computing catalogue version: %w", err)
	}
	c.version = v

	return c, nil
}

// Resolve looks up a topic by code.
func (c *Catalogue) Resolve(code string) Resolution {
	i, ok := c.byCode[code]
	if !ok {
		return Resolution{}
	}
	return Resolution{Node: cloneTopic(c.topics[i]), Found: true}
}

// Topic returns a topic by code.
func (c *Catalogue) Topic(code string) (TopicNode, bool) {
	r := c.Resolve(code)
	return r.Node, r.Found
}

// Has reports whether code is in the catalogue.
func (c *Catalogue) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Topics returns every topic in insertion order.
func (c *Catalogue) Topics() []TopicNode {
	return cloneTopics(c.topics)
}

// ByGrade returns the topics at a grade, ordered by category then code.
func (c *Catalogue) ByGrade(grade string) []TopicNode {
	return cloneTopics(c.byGrade[grade])
}

// ByCategory returns the topics in a category, ordered by grade then code.
func (c *Catalogue) ByCategory(cat Category) []TopicNode {
	return cloneTopics(c.byCategory[cat])
}

// Grades returns the grade scale the catalogue was built with.
func (c *Catalogue) Grades() GradeScale {
	return c.grades
}

// GapPatterns returns the advisory gap pattern table.
func (c *Catalogue) GapPatterns() GapPatternTable {
	return c.patterns
}

// Len returns the number of topics.
func (c *Catalogue) Len() int {
	return len(c.topics)
}

// Version is a content digest of the topics, grade scale and gap patterns.
// Two catalogues with the same content share a version, so it is safe to
// key cached results on it.
func (c *Catalogue) Version() string {
	return c.version
}

// Document returns the catalogue's content as a document that BuildCatalogue
// turns back into an equivalent catalogue.
func (c *Catalogue) Document() Document {
	return Document{
		Grades:      c.grades.Labels(),
		Topics:      c.Topics(),
		GapPatterns: c.patterns.All(),
	}
}

// DisplayName returns the topic's display name, or the code itself when the
// topic is not in the catalogue.
func (c *Catalogue) DisplayName(code string) string {
	if i, ok := c.byCode[code]; ok && c.topics[i].DisplayName != "" {
		return c.topics[i].DisplayName
	}
	return code
}

func (c *Catalogue) gradeRank(label string) int {
	if i, ok := c.grades.Ordinal(label); ok {
		return i
	}
	return c.grades.Len()
}

func rank(idx map[Category]int, cat Category) int {
	if i, ok := idx[cat]; ok {
		return i
	}
	return len(idx)
}

// digest covers everything a diagnosis reads from the catalogue: topics,
// the grade scale and the gap patterns.
func digest(topics []TopicNode, grades []string, patterns []GapPattern) (string, error) {
	data, err := json.Marshal(struct {
		Topics   []TopicNode  `json:"topics"`
		Grades   []string     `json:"grades,omitempty"`
		Patterns []GapPattern `json:"gap_patterns,omitempty"`
	}{topics, grades, patterns})
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

func cloneTopic(t TopicNode) TopicNode {
	t.PrerequisiteCodes = slices.Clone(t.PrerequisiteCodes)
	t.CommonGapDescriptions = slices.Clone(t.CommonGapDescriptions)
	t.TutorTips = slices.Clone(t.TutorTips)
	return t
}

func cloneTopics(in []TopicNode) []TopicNode {
	out := make([]TopicNode, len(in))
	for i, t := range in {
		out[i] = cloneTopic(t)
	}
	return out
}
