package diagnosis_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/diagnosis"
)

func TestBuildSchedule_PacksSmallTopics(t *testing.T) {
	missing := []curriculum.TopicNode{
		topic("A", "elem-3", 2, 1, nil),
		topic("B", "elem-2", 3, 1, nil),
		topic("C", "elem-1", 1, 1, nil),
		topic("D", "elem-1", 4, 1, nil),
	}
	target := topic("T", "elem-4", 2, 1, nil)

	got := diagnosis.BuildSchedule(missing, target, 6)

	// B would push week 1 past the cap; T always joins the last week.
	want := []diagnosis.CurriculumWeek{
		{WeekNumber: 1, TopicNames: []string{"Topic D", "Topic C"}, Goals: []string{"Master Topic D", "Master Topic C"}, EstimatedHours: 5},
		{WeekNumber: 2, TopicNames: []string{"Topic B", "Topic A", "Topic T"}, Goals: []string{"Master Topic B", "Master Topic A", "Begin study of Topic T"}, EstimatedHours: 7},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildSchedule() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSchedule_OversizedTopicSitsAlone(t *testing.T) {
	missing := []curriculum.TopicNode{
		topic("SMALL", "elem-2", 1, 1, nil),
		topic("BIG", "elem-1", 20, 1, nil),
	}
	target := topic("T", "elem-4", 1, 1, nil)

	got := diagnosis.BuildSchedule(missing, target, 6)

	if len(got) != 2 {
		t.Fatalf("len(weeks) = %d, want 2", len(got))
	}
	if diff := cmp.Diff([]string{"Topic BIG"}, got[0].TopicNames); diff != "" {
		t.Errorf("week 1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Topic SMALL", "Topic T"}, got[1].TopicNames); diff != "" {
		t.Errorf("week 2 mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSchedule_WeekNumbersAreSequential(t *testing.T) {
	var missing []curriculum.TopicNode
	for _, code := range []string{"A", "B", "C", "D", "E", "F"} {
		missing = append(missing, topic(code, "elem-1", 5, 1, nil))
	}

	got := diagnosis.BuildSchedule(missing, topic("T", "elem-2", 5, 1, nil), 6)

	for i, w := range got {
		if w.WeekNumber != i+1 {
			t.Errorf("weeks[%d].WeekNumber = %d, want %d", i, w.WeekNumber, i+1)
		}
	}
	if len(got) != 6 {
		t.Errorf("len(weeks) = %d, want 6", len(got))
	}
}

func TestBuildSchedule_DoesNotMutateInput(t *testing.T) {
	missing := []curriculum.TopicNode{
		topic("A", "elem-2", 1, 1, nil),
		topic("B", "elem-1", 1, 1, nil),
	}
	diagnosis.BuildSchedule(missing, topic("T", "elem-3", 1, 1, nil), 6)

	if missing[0].Code != "A" || missing[1].Code != "B" {
		t.Errorf("input reordered: %v", codes(missing))
	}
}
