package curriculum

import (
	"fmt"
	"slices"
	"strings"
)

// DanglingRef is a prerequisite code that does not resolve in the catalogue.
type DanglingRef struct {
	Topic        string
	Prerequisite string
}

// Report lists authoring defects found in a catalogue. None of them stop the
// engine from working; they exist so catalogue authors can fix their data.
type Report struct {
	Dangling     []DanglingRef
	CycleTopics  []string
	Problems     []string
	TopicsTotal  int
	PatternsSeen int
}

// OK reports whether the catalogue has no defects.
func (r Report) OK() bool {
	return len(r.Dangling) == 0 && len(r.CycleTopics) == 0 && len(r.Problems) == 0
}

// Err returns a combined error describing every defect, or nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	var errs []string
	for _, d := range r.Dangling {
		errs = append(errs, fmt.Sprintf("topic %q references nonexistent prerequisite %q", d.Topic, d.Prerequisite))
	}
	if len(r.CycleTopics) > 0 {
		errs = append(errs, fmt.Sprintf("cycle detected involving topics: %s", strings.Join(r.CycleTopics, ", ")))
	}
	errs = append(errs, r.Problems...)
	return fmt.Errorf("catalogue validation failed:\n  %s", strings.Join(errs, "\n  "))
}

// Validate checks a catalogue for dangling references, cycles and field
// values outside their documented ranges.
func Validate(c *Catalogue) Report {
	r := Report{TopicsTotal: c.Len(), PatternsSeen: c.patterns.Len()}

	for _, t := range c.topics {
		for _, p := range t.PrerequisiteCodes {
			if !c.Has(p) {
				r.Dangling = append(r.Dangling, DanglingRef{Topic: t.Code, Prerequisite: p})
			}
		}
		if t.EstimatedHours <= 0 {
			r.Problems = append(r.Problems, fmt.Sprintf("topic %q: estimated_hours must be > 0, got %g", t.Code, t.EstimatedHours))
		}
		if t.DifficultyRating < 1 || t.DifficultyRating > 5 {
			r.Problems = append(r.Problems, fmt.Sprintf("topic %q: difficulty must be in [1, 5], got %d", t.Code, t.DifficultyRating))
		}
		if _, ok := c.grades.Ordinal(t.GradeLevel); !ok {
			r.Problems = append(r.Problems, fmt.Sprintf("topic %q: grade %q is not on the grade scale", t.Code, t.GradeLevel))
		}
		if !t.Category.Valid() {
			r.Problems = append(r.Problems, fmt.Sprintf("topic %q: unknown category %q", t.Code, t.Category))
		}
	}

	for _, p := range c.patterns.All() {
		if !c.Has(p.Code) {
			r.Problems = append(r.Problems, fmt.Sprintf("gap pattern for unknown topic %q", p.Code))
		}
	}

	r.CycleTopics = cycleTopics(c)
	return r
}

// cycleTopics returns the codes of topics that lie on a prerequisite cycle.
// Kahn's algorithm over the resolvable edges narrows the search to topics on
// or behind a cycle; of those, only topics that reach themselves are kept.
func cycleTopics(c *Catalogue) []string {
	inDegree := make(map[string]int, len(c.topics))
	dependents := make(map[string][]string)
	for _, t := range c.topics {
		for _, p := range t.PrerequisiteCodes {
			if !c.Has(p) {
				continue
			}
			inDegree[t.Code]++
			dependents[p] = append(dependents[p], t.Code)
		}
	}

	var queue []string
	for _, t := range c.topics {
		if inDegree[t.Code] == 0 {
			queue = append(queue, t.Code)
		}
	}

	visited := 0
	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[code] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited == len(c.topics) {
		return nil
	}
	stuck := make(map[string]bool)
	for _, t := range c.topics {
		if inDegree[t.Code] > 0 {
			stuck[t.Code] = true
		}
	}

	var onCycle []string
	for code := range stuck {
		if reachesItself(c, code, stuck) {
			onCycle = append(onCycle, code)
		}
	}
	slices.Sort(onCycle)
	return onCycle
}

// reachesItself walks prerequisite edges from start within the allowed set
// and reports whether start is reached again.
func reachesItself(c *Catalogue, start string, allowed map[string]bool) bool {
	seen := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		code := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		t, ok := c.Topic(code)
		if !ok {
			continue
		}
		for _, p := range t.PrerequisiteCodes {
			if p == start {
				return true
			}
			if allowed[p] && !seen[p] {
				seen[p] = true
				stack = append(stack, p)
			}
		}
	}
	return false
}
