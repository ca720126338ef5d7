// Package diagnosis finds the prerequisite gaps behind a learner's current
// topic and packs them into a week-by-week remediation schedule.
//
// Everything here is a pure function of the catalogue, the engine config and
// the input. A catalogue may be shared by any number of concurrent calls;
// traversal state is allocated per call.
package diagnosis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

// MasteryLevel is a learner's competence at their current topic. Weaker
// mastery triggers a deeper prerequisite audit. The zero value is unset and
// not a valid level.
type MasteryLevel int

const (
	MasteryUnset MasteryLevel = iota
	MasteryHigh
	MasteryMid
	MasteryLow
)

// ErrInvalidInput is returned for diagnostic inputs that cannot be run.
var ErrInvalidInput = errors.New("invalid diagnostic input")

// Valid reports whether m is one of high, mid or low.
func (m MasteryLevel) Valid() bool {
	return m >= MasteryHigh && m <= MasteryLow
}

// Depth returns the traversal depth audited for the level.
func (m MasteryLevel) Depth() int {
	switch m {
	case MasteryLow:
		return 3
	case MasteryMid:
		return 2
	default:
		return 1
	}
}

func (m MasteryLevel) String() string {
	switch m {
	case MasteryHigh:
		return "high"
	case MasteryMid:
		return "mid"
	case MasteryLow:
		return "low"
	case MasteryUnset:
		return "unset"
	default:
		return "unknown"
	}
}

// ParseMasteryLevel parses "high", "mid" or "low" (case-insensitive).
func ParseMasteryLevel(s string) (MasteryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return MasteryHigh, nil
	case "mid", "medium":
		return MasteryMid, nil
	case "low":
		return MasteryLow, nil
	default:
		return MasteryUnset, fmt.Errorf("invalid mastery level %q (want high, mid or low)", s)
	}
}

func (m MasteryLevel) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mastery level %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *MasteryLevel) UnmarshalText(b []byte) error {
	v, err := ParseMasteryLevel(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Severity is the urgency tier of a missing prerequisite.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// SeverityFor classifies a gap purely from the topic's difficulty rating.
func SeverityFor(difficulty int) Severity {
	switch {
	case difficulty >= 4:
		return SeverityCritical
	case difficulty == 3:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}

// Gap is a missing prerequisite and how urgent it is.
type Gap struct {
	Topic    curriculum.TopicNode `json:"topic"`
	Severity Severity             `json:"severity"`
}

// DiagnosticInput drives the depth-bounded diagnosis. TargetTopicCode is
// optional and defaults to the current topic.
type DiagnosticInput struct {
	CurrentTopicCode string       `json:"current_topic_code"`
	MasteryLevel     MasteryLevel `json:"mastery_level"`
	TargetTopicCode  string       `json:"target_topic_code,omitempty"`
}

// Validate checks that the input names a current topic and a mastery level.
func (in DiagnosticInput) Validate() error {
	switch {
	case in.CurrentTopicCode == "":
		return fmt.Errorf("%w: current_topic_code is required", ErrInvalidInput)
	case in.MasteryLevel == MasteryUnset:
		return fmt.Errorf("%w: mastery_level is required", ErrInvalidInput)
	case !in.MasteryLevel.Valid():
		return fmt.Errorf("%w: mastery_level %d is out of range", ErrInvalidInput, int(in.MasteryLevel))
	}
	return nil
}

// KnownSetInput drives the closure diagnosis.
type KnownSetInput struct {
	TargetTopicCode string   `json:"target_topic_code"`
	KnownTopicCodes []string `json:"known_topic_codes"`
}

// CurriculumWeek is one hour-capped bucket of the remediation schedule.
type CurriculumWeek struct {
	WeekNumber     int      `json:"week_number"`
	TopicNames     []string `json:"topic_names"`
	Goals          []string `json:"goals"`
	EstimatedHours float64  `json:"estimated_hours"`
}

// DiagnosticOutput is the full result of a diagnosis.
type DiagnosticOutput struct {
	GradeGapLabel         string           `json:"grade_gap_label"`
	MissingPrerequisites  []Gap            `json:"missing_prerequisites"`
	RecommendedStartTopic string           `json:"recommended_start_topic"`
	EstimatedWeeks        int              `json:"estimated_weeks"`
	CurriculumSchedule    []CurriculumWeek `json:"curriculum_schedule"`
	Warnings              []string         `json:"warnings"`
	TutorTips             []string         `json:"tutor_tips"`
}

// NoGapLabel is the grade gap label when nothing upstream is below the
// current topic's grade.
const NoGapLabel = "no gap"
