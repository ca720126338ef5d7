package curriculum_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

func TestXLSX_RoundTrip(t *testing.T) {
	doc := curriculum.Document{
		Grades: []string{"g1", "g2"},
		Topics: []curriculum.TopicNode{
			{
				Code: "A", DisplayName: "Adding", GradeLevel: "g1", Category: curriculum.CategoryNumbers,
				EstimatedHours: 2.5, DifficultyRating: 1,
				TutorTips: []string{"Count on fingers", "Use a number line, then drop it"},
			},
			{
				Code: "B", DisplayName: "Borrowing", GradeLevel: "g2", Category: curriculum.CategoryNumbers,
				PrerequisiteCodes: []string{"A"}, EstimatedHours: 4, DifficultyRating: 3,
				CommonGapDescriptions: []string{"Subtracts the smaller digit from the larger"},
			},
		},
		GapPatterns: []curriculum.GapPattern{{Code: "B", RealGapCodes: []string{"A"}, Source: "teachers"}},
	}

	path := filepath.Join(t.TempDir(), "catalogue.xlsx")
	if err := curriculum.WriteXLSX(doc, path); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	got, err := curriculum.ReadXLSX(path)
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if diff := cmp.Diff(doc, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	cat, err := curriculum.XLSXSource{Path: path}.LoadCatalogue(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalogue() error = %v", err)
	}
	if cat.Len() != 2 || cat.Grades().Len() != 2 {
		t.Errorf("catalogue has %d topics on %d grades, want 2 on 2", cat.Len(), cat.Grades().Len())
	}
}

func TestReadXLSX_MissingFile(t *testing.T) {
	if _, err := curriculum.ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
		t.Error("ReadXLSX() should fail for a missing file")
	}
}
