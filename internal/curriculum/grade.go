package curriculum

import (
	"fmt"
	"slices"
)

// GradeScale is an ordered, finite sequence of grade labels. It is only used
// to measure how many years apart two grades are.
type GradeScale struct {
	labels  []string
	ordinal map[string]int
}

// DefaultGradeLabels is the scale used when a catalogue does not declare one.
var DefaultGradeLabels = []string{
	"elem-1", "elem-2", "elem-3", "elem-4", "elem-5", "elem-6",
	"middle-1", "middle-2", "middle-3",
	"high-1", "high-2", "high-3",
}

// NewGradeScale builds a scale from labels listed lowest first.
func NewGradeScale(labels []string) (GradeScale, error) {
	s := GradeScale{
		labels:  slices.Clone(labels),
		ordinal: make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if l == "" {
			return GradeScale{}, fmt.Errorf("grade label %d is empty", i)
		}
		if _, dup := s.ordinal[l]; dup {
			return GradeScale{}, fmt.Errorf("duplicate grade label: %q", l)
		}
		s.ordinal[l] = i
	}
	return s, nil
}

// DefaultGradeScale returns the scale built from DefaultGradeLabels.
func DefaultGradeScale() GradeScale {
	s, _ := NewGradeScale(DefaultGradeLabels)
	return s
}

// Ordinal returns the position of label on the scale.
func (s GradeScale) Ordinal(label string) (int, bool) {
	i, ok := s.ordinal[label]
	return i, ok
}

// Distance returns ordinal(to) - ordinal(from). ok is false if either label
// is not on the scale.
func (s GradeScale) Distance(from, to string) (int, bool) {
	a, okA := s.ordinal[from]
	b, okB := s.ordinal[to]
	if !okA || !okB {
		return 0, false
	}
	return b - a, true
}

// Labels returns the scale lowest first.
func (s GradeScale) Labels() []string {
	return slices.Clone(s.labels)
}

// Len returns the number of grades on the scale.
func (s GradeScale) Len() int {
	return len(s.labels)
}
