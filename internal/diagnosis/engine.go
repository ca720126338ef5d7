package diagnosis

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

const (
	DefaultScheduleWeekCapHours = 6.0
	DefaultEstimateHoursPerWeek = 3.0
)

// ErrTopicNotFound is returned by list-style operations when the requested
// topic is not in the catalogue.
var ErrTopicNotFound = errors.New("topic not found in catalogue")

// Config tunes the engine.
//
// ScheduleWeekCapHours sizes the schedule's weekly buckets and
// EstimateHoursPerWeek divides the remediation hours into the weeks estimate.
// They are deliberately separate knobs; EstimateIncludesTarget adds the
// target topic's own hours to the estimate.
type Config struct {
	ScheduleWeekCapHours   float64
	EstimateHoursPerWeek   float64
	EstimateIncludesTarget bool
	ReportCycles           bool // add a warning per cycle found in the walked region
}

// Engine runs diagnoses against one immutable catalogue. It is safe for
// concurrent use.
type Engine struct {
	cat *curriculum.Catalogue
	cfg Config
}

// NewEngine creates an engine. Non-positive hour settings fall back to the
// defaults.
func NewEngine(cat *curriculum.Catalogue, cfg Config) *Engine {
	if cfg.ScheduleWeekCapHours <= 0 {
		cfg.ScheduleWeekCapHours = DefaultScheduleWeekCapHours
	}
	if cfg.EstimateHoursPerWeek <= 0 {
		cfg.EstimateHoursPerWeek = DefaultEstimateHoursPerWeek
	}
	return &Engine{cat: cat, cfg: cfg}
}

// Catalogue returns the catalogue the engine reads.
func (e *Engine) Catalogue() *curriculum.Catalogue {
	return e.cat
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Fingerprint identifies everything besides the input that shapes an
// output: the catalogue version and the effective configuration.
func (e *Engine) Fingerprint() string {
	return fmt.Sprintf("%s;cap=%g;per_week=%g;include_target=%t;cycles=%t",
		e.cat.Version(),
		e.cfg.ScheduleWeekCapHours,
		e.cfg.EstimateHoursPerWeek,
		e.cfg.EstimateIncludesTarget,
		e.cfg.ReportCycles,
	)
}

// DiagnoseByLevel audits the prerequisites of the current topic to a depth
// set by the learner's mastery and schedules the remediation. An unknown
// topic yields a degraded output carrying a single warning.
func (e *Engine) DiagnoseByLevel(in DiagnosticInput) DiagnosticOutput {
	current := e.cat.Resolve(in.CurrentTopicCode)
	if !current.Found {
		return degraded(in.CurrentTopicCode)
	}
	target := current
	if in.TargetTopicCode != "" && in.TargetTopicCode != in.CurrentTopicCode {
		target = e.cat.Resolve(in.TargetTopicCode)
		if !target.Found {
			return degraded(in.TargetTopicCode)
		}
	}

	depth := in.MasteryLevel.Depth()
	missing := Resolve(e.cat, current.Node.Code, depth)

	out := e.assemble(current.Node, target.Node, missing)
	if e.cfg.ReportCycles {
		out.Warnings = append(out.Warnings, cycleWarnings(FindCycles(e.cat, current.Node.Code, depth))...)
	}
	return out
}

// DiagnoseByKnownSet walks the full prerequisite closure of the target and
// returns every topic not in known, classified by severity.
func (e *Engine) DiagnoseByKnownSet(target string, known []string) ([]Gap, error) {
	if !e.cat.Has(target) {
		return nil, fmt.Errorf("diagnosing %q: %w", target, ErrTopicNotFound)
	}
	return toGaps(e.unknownClosure(target, known)), nil
}

// PlanKnownSet composes the closure diagnosis with scheduling and advice,
// measured against the target topic.
func (e *Engine) PlanKnownSet(target string, known []string) DiagnosticOutput {
	t := e.cat.Resolve(target)
	if !t.Found {
		return degraded(target)
	}

	missing := e.unknownClosure(target, known)
	out := e.assemble(t.Node, t.Node, missing)
	if e.cfg.ReportCycles {
		out.Warnings = append(out.Warnings, cycleWarnings(FindCycles(e.cat, target, Unbounded))...)
	}
	return out
}

// TopicsByGrade lists the catalogue's topics at a grade.
func (e *Engine) TopicsByGrade(grade string) []curriculum.TopicNode {
	return e.cat.ByGrade(grade)
}

// TopicsByCategory lists the catalogue's topics in a category.
func (e *Engine) TopicsByCategory(cat curriculum.Category) []curriculum.TopicNode {
	return e.cat.ByCategory(cat)
}

func (e *Engine) unknownClosure(target string, known []string) []curriculum.TopicNode {
	all := Resolve(e.cat, target, Unbounded)
	if len(known) == 0 {
		return all
	}
	return slices.DeleteFunc(all, func(t curriculum.TopicNode) bool {
		return slices.Contains(known, t.Code)
	})
}

// assemble builds the output shared by both modes. current anchors the grade
// gap and the start recommendation; target closes the schedule.
//
// A target upstream of current is discovered as a prerequisite too. It is
// scheduled once, as the closing topic, so it is dropped from the remediation
// list; the grade gap and the start recommendation still see it.
func (e *Engine) assemble(current, target curriculum.TopicNode, missing []curriculum.TopicNode) DiagnosticOutput {
	start := current.DisplayName
	if len(missing) > 0 {
		start = missing[len(missing)-1].DisplayName
	}
	gradeGap := gradeGapLabel(e.cat.Grades(), current, missing)

	if target.Code != current.Code {
		missing = slices.DeleteFunc(slices.Clone(missing), func(t curriculum.TopicNode) bool {
			return t.Code == target.Code
		})
	}

	var hours float64
	for _, t := range missing {
		hours += t.EstimatedHours
	}

	heads := []curriculum.TopicNode{current}
	if target.Code != current.Code {
		heads = append(heads, target)
	}

	warnings := gapWarnings(e.cat, current.Code, target.Code)
	if warnings == nil {
		warnings = []string{}
	}

	return DiagnosticOutput{
		GradeGapLabel:         gradeGap,
		MissingPrerequisites:  toGaps(missing),
		RecommendedStartTopic: start,
		EstimatedWeeks:        e.estimateWeeks(hours, target),
		CurriculumSchedule:    BuildSchedule(missing, target, e.cfg.ScheduleWeekCapHours),
		Warnings:              warnings,
		TutorTips:             collectTips(heads, missing),
	}
}

func (e *Engine) estimateWeeks(prereqHours float64, target curriculum.TopicNode) int {
	hours := prereqHours
	if e.cfg.EstimateIncludesTarget {
		hours += target.EstimatedHours
	}
	return int(math.Ceil(hours / e.cfg.EstimateHoursPerWeek))
}

// gradeGapLabel compares the lowest grade among current and its missing
// prerequisites with current's own grade. Grades that are not on the scale
// are ignored.
func gradeGapLabel(scale curriculum.GradeScale, current curriculum.TopicNode, missing []curriculum.TopicNode) string {
	base, ok := scale.Ordinal(current.GradeLevel)
	if !ok {
		return NoGapLabel
	}

	lowest, lowestLabel := base, current.GradeLevel
	for _, t := range missing {
		if o, ok := scale.Ordinal(t.GradeLevel); ok && o < lowest {
			lowest, lowestLabel = o, t.GradeLevel
		}
	}

	if lowest >= base {
		return NoGapLabel
	}
	return fmt.Sprintf("%s level (-%d years)", lowestLabel, base-lowest)
}

func toGaps(topics []curriculum.TopicNode) []Gap {
	gaps := make([]Gap, len(topics))
	for i, t := range topics {
		gaps[i] = Gap{Topic: t, Severity: SeverityFor(t.DifficultyRating)}
	}
	return gaps
}

func degraded(code string) DiagnosticOutput {
	return DiagnosticOutput{
		MissingPrerequisites: []Gap{},
		CurriculumSchedule:   []CurriculumWeek{},
		Warnings:             []string{notFoundWarning(code)},
		TutorTips:            []string{},
	}
}
