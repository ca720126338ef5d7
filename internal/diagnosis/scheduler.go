package diagnosis

import (
	"slices"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

// BuildSchedule packs the missing topics, most foundational first, into
// weeks of roughly capHours each, and puts the target in the final week.
//
// missing must be in discovery order; it is reversed here. That is a
// heuristic stand-in for a topological order, not a guarantee of one. The
// cap is a planning guide: a topic larger than the cap sits alone in its
// week, and the target is always added to the last open week.
func BuildSchedule(missing []curriculum.TopicNode, target curriculum.TopicNode, capHours float64) []CurriculumWeek {
	var weeks []CurriculumWeek
	cur := CurriculumWeek{WeekNumber: 1}

	closeWeek := func() {
		weeks = append(weeks, cur)
		cur = CurriculumWeek{WeekNumber: cur.WeekNumber + 1}
	}

	ordered := slices.Clone(missing)
	slices.Reverse(ordered)

	for _, t := range ordered {
		if cur.EstimatedHours+t.EstimatedHours > capHours && len(cur.TopicNames) > 0 {
			closeWeek()
		}
		cur.TopicNames = append(cur.TopicNames, t.DisplayName)
		cur.Goals = append(cur.Goals, "Master "+t.DisplayName)
		cur.EstimatedHours += t.EstimatedHours
	}

	cur.TopicNames = append(cur.TopicNames, target.DisplayName)
	cur.Goals = append(cur.Goals, "Begin study of "+target.DisplayName)
	cur.EstimatedHours += target.EstimatedHours
	weeks = append(weeks, cur)

	return weeks
}
