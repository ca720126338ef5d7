package curriculum

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TopicNode is one curriculum unit with its own prerequisites and cost.
type TopicNode struct {
	Code                  string   `yaml:"code" json:"code"`
	DisplayName           string   `yaml:"display_name" json:"display_name"`
	GradeLevel            string   `yaml:"grade_level" json:"grade_level"`
	Category              Category `yaml:"category" json:"category"`
	PrerequisiteCodes     []string `yaml:"prerequisites" json:"prerequisite_codes"`
	EstimatedHours        float64  `yaml:"estimated_hours" json:"estimated_hours"`
	DifficultyRating      int      `yaml:"difficulty" json:"difficulty_rating"`
	CommonGapDescriptions []string `yaml:"common_gaps" json:"common_gap_descriptions,omitempty"`
	TutorTips             []string `yaml:"tutor_tips" json:"tutor_tips,omitempty"`
}

// Category is the closed classification tag of a topic.
type Category string

const (
	CategoryNumbers     Category = "numbers-and-operations"
	CategoryAlgebra     Category = "algebra"
	CategoryFunctions   Category = "functions"
	CategoryGeometry    Category = "geometry"
	CategoryMeasurement Category = "measurement"
	CategoryStatistics  Category = "statistics-and-probability"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryNumbers,
		CategoryAlgebra,
		CategoryFunctions,
		CategoryGeometry,
		CategoryMeasurement,
		CategoryStatistics,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryDisplayName returns a human-readable name for a category,
// e.g. "numbers-and-operations" becomes "Numbers & Operations".
func CategoryDisplayName(c Category) string {
	switch c {
	case CategoryNumbers:
		return "Numbers & Operations"
	case CategoryStatistics:
		return "Statistics & Probability"
	}
	// Casers are stateful; build one per call.
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "-", " "))
}

// GapPattern records that, for a topic, the real missing prerequisites
// are typically elsewhere. Advisory only.
type GapPattern struct {
	Code         string   `yaml:"code" json:"code"`
	RealGapCodes []string `yaml:"real_gaps" json:"real_gap_codes"`
	Source       string   `yaml:"source" json:"source"`
}

// Document is the on-disk shape of a catalogue file. A directory may split
// topics, grades and gap patterns across several documents.
type Document struct {
	Grades      []string     `yaml:"grades,omitempty" json:"grades,omitempty"`
	Topics      []TopicNode  `yaml:"topics,omitempty" json:"topics,omitempty"`
	GapPatterns []GapPattern `yaml:"gap_patterns,omitempty" json:"gap_patterns,omitempty"`
}
