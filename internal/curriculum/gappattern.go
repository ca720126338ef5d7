package curriculum

import (
	"slices"
	"strings"
)

// GapPatternTable maps a topic code to the prerequisites that are typically
// the real gap when a learner struggles with it. It never changes severity;
// it only feeds warning text.
type GapPatternTable struct {
	byCode map[string]GapPattern
}

// NewGapPatternTable indexes patterns by code. A later entry for the same
// code replaces an earlier one.
func NewGapPatternTable(patterns []GapPattern) GapPatternTable {
	t := GapPatternTable{byCode: make(map[string]GapPattern, len(patterns))}
	for _, p := range patterns {
		if p.Code == "" {
			continue
		}
		p.RealGapCodes = slices.Clone(p.RealGapCodes)
		t.byCode[p.Code] = p
	}
	return t
}

// Lookup returns the pattern recorded for code.
func (t GapPatternTable) Lookup(code string) (GapPattern, bool) {
	p, ok := t.byCode[code]
	if !ok {
		return GapPattern{}, false
	}
	p.RealGapCodes = slices.Clone(p.RealGapCodes)
	return p, true
}

// Len returns the number of patterns in the table.
func (t GapPatternTable) Len() int {
	return len(t.byCode)
}

// All returns every pattern ordered by code.
func (t GapPatternTable) All() []GapPattern {
	out := make([]GapPattern, 0, len(t.byCode))
	for _, p := range t.byCode {
		p.RealGapCodes = slices.Clone(p.RealGapCodes)
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b GapPattern) int {
		return strings.Compare(a.Code, b.Code)
	})
	return out
}
