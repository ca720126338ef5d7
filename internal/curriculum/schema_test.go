package curriculum_test

import (
	"testing"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name          string
		doc           string
		wantViolation bool
		wantErr       bool
	}{
		{
			name: "valid",
			doc: `
topics:
  - code: A
    display_name: A
    grade_level: elem-1
    category: geometry
    estimated_hours: 1.5
    difficulty: 3
gap_patterns:
  - code: A
    real_gaps: [B]
`,
		},
		{
			name:          "missing required field",
			doc:           "topics:\n  - code: A\n    display_name: A\n",
			wantViolation: true,
		},
		{
			name: "unknown category",
			doc: `
topics:
  - {code: A, display_name: A, grade_level: g, category: poetry, estimated_hours: 1, difficulty: 1}
`,
			wantViolation: true,
		},
		{
			name: "zero hours",
			doc: `
topics:
  - {code: A, display_name: A, grade_level: g, category: algebra, estimated_hours: 0, difficulty: 1}
`,
			wantViolation: true,
		},
		{
			name:          "pattern without gaps",
			doc:           "gap_patterns:\n  - code: A\n    real_gaps: []\n",
			wantViolation: true,
		},
		{name: "empty document", doc: ""},
		{name: "unparseable", doc: "topics: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, err := curriculum.ValidateDocument([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (len(violations) > 0) != tt.wantViolation {
				t.Errorf("ValidateDocument() violations = %v, wantViolation %v", violations, tt.wantViolation)
			}
		})
	}
}
