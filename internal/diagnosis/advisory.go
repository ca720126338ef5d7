package diagnosis

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

// gapWarnings returns one warning per code that has a gap pattern. Codes are
// looked up in order and a repeated code only warns once.
func gapWarnings(cat *curriculum.Catalogue, codes ...string) []string {
	var warnings []string
	seen := make(map[string]bool, len(codes))
	patterns := cat.GapPatterns()

	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		p, ok := patterns.Lookup(code)
		if !ok || len(p.RealGapCodes) == 0 {
			continue
		}
		names := make([]string, len(p.RealGapCodes))
		for i, gap := range p.RealGapCodes {
			names[i] = cat.DisplayName(gap)
		}

		w := fmt.Sprintf("%s: the real gap is typically %s", cat.DisplayName(code), strings.Join(names, ", "))
		if p.Source != "" {
			w += fmt.Sprintf(" (source: %s)", p.Source)
		}
		warnings = append(warnings, w)
	}
	return warnings
}

// collectTips gathers tutor tips from the head topics first, then from the
// missing topics in discovery order, keeping the first occurrence of each.
func collectTips(heads []curriculum.TopicNode, missing []curriculum.TopicNode) []string {
	tips := []string{}
	seen := make(map[string]bool)

	add := func(t curriculum.TopicNode) {
		for _, tip := range t.TutorTips {
			if seen[tip] {
				continue
			}
			seen[tip] = true
			tips = append(tips, tip)
		}
	}

	for _, t := range heads {
		add(t)
	}
	for _, t := range missing {
		add(t)
	}
	return tips
}

func cycleWarnings(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = fmt.Sprintf("cycle detected involving topic %s", c)
	}
	return out
}

func notFoundWarning(code string) string {
	return fmt.Sprintf("topic %q not found in catalogue", code)
}
