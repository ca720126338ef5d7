package curriculum_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

func TestLoader_LoadTopics(t *testing.T) {
	dir := setupTestCatalogue(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cat, err := loader.Catalogue()
	if err != nil {
		t.Fatalf("Catalogue() error = %v", err)
	}
	if cat.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cat.Len())
	}
	if got := cat.Grades().Labels(); len(got) != 4 {
		t.Errorf("Grades().Labels() = %v, want the declared 4-grade scale", got)
	}
}

func TestLoader_Resolve(t *testing.T) {
	cat := loadTestCatalogue(t)

	r := cat.Resolve("ALG-LIN-EQ")
	if !r.Found {
		t.Fatal("Resolve(ALG-LIN-EQ) not found")
	}
	if r.Node.DisplayName != "Linear Equations" {
		t.Errorf("DisplayName = %q, want Linear Equations", r.Node.DisplayName)
	}
	if diff := cmp.Diff([]string{"NUM-INT", "ALG-EXPR"}, r.Node.PrerequisiteCodes); diff != "" {
		t.Errorf("prerequisites mismatch (-want +got):\n%s", diff)
	}

	if cat.Resolve("NONEXISTENT").Found {
		t.Error("Resolve(NONEXISTENT) should not be found")
	}
}

func TestLoader_TipsFiles(t *testing.T) {
	cat := loadTestCatalogue(t)

	node, _ := cat.Topic("ALG-LIN-EQ")
	want := []string{"Balance scales make inverse operations concrete", "Check answers by substitution", "Keep the equals signs aligned"}
	if diff := cmp.Diff(want, node.TutorTips); diff != "" {
		t.Errorf("tutor tips mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_GapPatterns(t *testing.T) {
	cat := loadTestCatalogue(t)

	p, ok := cat.GapPatterns().Lookup("ALG-LIN-EQ")
	if !ok {
		t.Fatal("gap pattern for ALG-LIN-EQ not found")
	}
	if diff := cmp.Diff([]string{"NUM-INT"}, p.RealGapCodes); diff != "" {
		t.Errorf("real gaps mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_SkipsSchemaViolations(t *testing.T) {
	dir := setupTestCatalogue(t)

	bad := filepath.Join(dir, "broken.yaml")
	os.WriteFile(bad, []byte(`
topics:
  - code: BAD-1
    display_name: "Missing hours"
    grade_level: g7
    category: algebra
    difficulty: 9
`), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	cat, err := loader.Catalogue()
	if err != nil {
		t.Fatalf("Catalogue() error = %v", err)
	}

	if cat.Has("BAD-1") {
		t.Error("topic from a document with schema violations should be skipped")
	}
	if len(loader.Violations()[bad]) == 0 {
		t.Errorf("Violations() has nothing for %s", bad)
	}
}

func TestLoader_SkipsUnparseableYAML(t *testing.T) {
	dir := setupTestCatalogue(t)
	os.WriteFile(filepath.Join(dir, "junk.yml"), []byte("topics: [unclosed"), 0o644)

	cat := mustLoad(t, dir)
	if cat.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cat.Len())
	}
}

func TestLoader_DuplicateGradeScale(t *testing.T) {
	dir := setupTestCatalogue(t)
	os.WriteFile(filepath.Join(dir, "more-grades.yaml"), []byte("grades: [x, y]\n"), 0o644)

	if _, err := curriculum.NewLoader(dir); err == nil {
		t.Fatal("NewLoader() should reject a second grade scale")
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	cat := mustLoad(t, t.TempDir())

	if cat.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for empty dir", cat.Len())
	}
	if cat.Grades().Len() != len(curriculum.DefaultGradeLabels) {
		t.Errorf("Grades().Len() = %d, want default scale", cat.Grades().Len())
	}
}

func TestLoader_TipsWithoutTopic(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "orphan.tips.md"), []byte("- lonely tip\n"), 0o644)

	cat := mustLoad(t, dir)
	if cat.Has("orphan") {
		t.Error("tips file alone should not create a topic")
	}
}

func TestDirSource(t *testing.T) {
	src := curriculum.DirSource{Root: setupTestCatalogue(t)}

	cat, err := src.LoadCatalogue(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalogue() error = %v", err)
	}
	if !cat.Has("NUM-INT") {
		t.Error("LoadCatalogue() missing NUM-INT")
	}
}

func mustLoad(t *testing.T, dir string) *curriculum.Catalogue {
	t.Helper()
	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	cat, err := loader.Catalogue()
	if err != nil {
		t.Fatalf("Catalogue() error = %v", err)
	}
	return cat
}

func loadTestCatalogue(t *testing.T) *curriculum.Catalogue {
	t.Helper()
	return mustLoad(t, setupTestCatalogue(t))
}

func setupTestCatalogue(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	topicsDir := filepath.Join(dir, "topics", "algebra")
	os.MkdirAll(topicsDir, 0o755)

	os.WriteFile(filepath.Join(dir, "grades.yaml"), []byte(`
grades: [g6, g7, g8, g9]
`), 0o644)

	os.WriteFile(filepath.Join(dir, "topics", "numbers.yaml"), []byte(`
topics:
  - code: NUM-INT
    display_name: "Integers"
    grade_level: g6
    category: numbers-and-operations
    estimated_hours: 4
    difficulty: 2
`), 0o644)

	os.WriteFile(filepath.Join(topicsDir, "linear.yaml"), []byte(`
topics:
  - code: ALG-EXPR
    display_name: "Algebraic Expressions"
    grade_level: g7
    category: algebra
    prerequisites: [NUM-INT]
    estimated_hours: 5
    difficulty: 3
  - code: ALG-LIN-EQ
    display_name: "Linear Equations"
    grade_level: g8
    category: algebra
    prerequisites: [NUM-INT, ALG-EXPR]
    estimated_hours: 6.5
    difficulty: 4
    common_gaps:
      - "Moves terms across the equals sign without changing sign"
    tutor_tips:
      - "Balance scales make inverse operations concrete"
gap_patterns:
  - code: ALG-LIN-EQ
    real_gaps: [NUM-INT]
    source: "classroom observation"
`), 0o644)

	os.WriteFile(filepath.Join(topicsDir, "ALG-LIN-EQ.tips.md"), []byte(`# Linear equations

- Check answers by substitution
- Keep the equals signs aligned
Not a bullet, ignored.
-
`), 0o644)

	return dir
}

func TestWriteDocument_ReadBack(t *testing.T) {
	loader, err := curriculum.NewLoader(setupTestCatalogue(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	doc := loader.Document()

	out := filepath.Join(t.TempDir(), "export", "catalogue.yaml")
	if err := curriculum.WriteDocument(doc, out); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}

	reread, err := curriculum.NewLoader(filepath.Dir(out))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if len(reread.Violations()) != 0 {
		t.Errorf("written document has schema violations: %v", reread.Violations())
	}
	if diff := cmp.Diff(doc, reread.Document(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}
