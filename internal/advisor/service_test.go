package advisor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/p-n-ai/pai-gapfinder/internal/advisor"
	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/diagnosis"
)

func testEngine(t *testing.T) *diagnosis.Engine {
	t.Helper()
	return chainEngine(t, diagnosis.Config{}, curriculum.GapPatternTable{})
}

func chainEngine(t *testing.T, cfg diagnosis.Config, patterns curriculum.GapPatternTable) *diagnosis.Engine {
	t.Helper()
	topics := []curriculum.TopicNode{
		{Code: "A", DisplayName: "Topic A", GradeLevel: "middle-2", Category: curriculum.CategoryAlgebra, PrerequisiteCodes: []string{"B", "C"}, EstimatedHours: 10, DifficultyRating: 3},
		{Code: "B", DisplayName: "Topic B", GradeLevel: "middle-1", Category: curriculum.CategoryAlgebra, PrerequisiteCodes: []string{"D", "C"}, EstimatedHours: 8, DifficultyRating: 4},
		{Code: "C", DisplayName: "Topic C", GradeLevel: "elem-6", Category: curriculum.CategoryAlgebra, PrerequisiteCodes: []string{"E"}, EstimatedHours: 6, DifficultyRating: 2},
		{Code: "D", DisplayName: "Topic D", GradeLevel: "elem-5", Category: curriculum.CategoryNumbers, EstimatedHours: 10, DifficultyRating: 3},
		{Code: "E", DisplayName: "Topic E", GradeLevel: "elem-6", Category: curriculum.CategoryNumbers, EstimatedHours: 8, DifficultyRating: 5},
	}
	cat, err := curriculum.NewCatalogue(topics, curriculum.DefaultGradeScale(), patterns)
	if err != nil {
		t.Fatalf("NewCatalogue() error = %v", err)
	}
	return diagnosis.NewEngine(cat, cfg)
}

func TestService_DiagnoseLevel_Caches(t *testing.T) {
	cache := advisor.NewMemoryCache(time.Minute)
	events := advisor.NewMemoryEventLogger()
	svc := advisor.NewService(testEngine(t), advisor.WithCache(cache), advisor.WithEventLogger(events))
	ctx := context.Background()
	in := diagnosis.DiagnosticInput{CurrentTopicCode: "A", MasteryLevel: diagnosis.MasteryLow}

	first, err := svc.DiagnoseLevel(ctx, in)
	if err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}
	if first.Cached {
		t.Error("first call should not be served from cache")
	}
	if first.ID == "" {
		t.Error("ID is empty")
	}

	second, err := svc.DiagnoseLevel(ctx, in)
	if err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}
	if !second.Cached {
		t.Error("second call should be served from cache")
	}
	if first.ID == second.ID {
		t.Error("each call should get its own diagnosis ID")
	}
	if diff := cmp.Diff(first.Value, second.Value, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached output mismatch (-want +got):\n%s", diff)
	}
	if first.Value.EstimatedWeeks != 11 {
		t.Errorf("EstimatedWeeks = %d, want 11", first.Value.EstimatedWeeks)
	}

	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, want 1", cache.Len())
	}

	logged := events.Events()
	if len(logged) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(logged))
	}
	if logged[0].EventType != advisor.EventDiagnosisCompleted || logged[0].Mode != advisor.ModeLevel {
		t.Errorf("event = %+v, want a completed level diagnosis", logged[0])
	}
	if logged[1].Data["cached"] != true {
		t.Errorf("second event cached = %v, want true", logged[1].Data["cached"])
	}
}

func TestService_DistinctInputsDoNotShareEntries(t *testing.T) {
	cache := advisor.NewMemoryCache(0)
	svc := advisor.NewService(testEngine(t), advisor.WithCache(cache))
	ctx := context.Background()

	high, _ := svc.DiagnoseLevel(ctx, diagnosis.DiagnosticInput{CurrentTopicCode: "A", MasteryLevel: diagnosis.MasteryHigh})
	low, _ := svc.DiagnoseLevel(ctx, diagnosis.DiagnosticInput{CurrentTopicCode: "A", MasteryLevel: diagnosis.MasteryLow})

	if len(high.Value.MissingPrerequisites) == len(low.Value.MissingPrerequisites) {
		t.Errorf("high and low mastery returned the same gap count %d", len(high.Value.MissingPrerequisites))
	}
	if cache.Len() != 2 {
		t.Errorf("cache.Len() = %d, want 2", cache.Len())
	}
}

func TestService_DiagnoseKnownSet(t *testing.T) {
	cache := advisor.NewMemoryCache(0)
	svc := advisor.NewService(testEngine(t), advisor.WithCache(cache))
	ctx := context.Background()

	res, err := svc.DiagnoseKnownSet(ctx, diagnosis.KnownSetInput{TargetTopicCode: "A", KnownTopicCodes: []string{"D", "C", "D"}})
	if err != nil {
		t.Fatalf("DiagnoseKnownSet() error = %v", err)
	}
	var got []string
	for _, g := range res.Value {
		got = append(got, g.Topic.Code)
	}
	if diff := cmp.Diff([]string{"B", "E"}, got); diff != "" {
		t.Errorf("gaps mismatch (-want +got):\n%s", diff)
	}

	// Same set in another order hits the same entry.
	again, err := svc.DiagnoseKnownSet(ctx, diagnosis.KnownSetInput{TargetTopicCode: "A", KnownTopicCodes: []string{"C", "D"}})
	if err != nil {
		t.Fatalf("DiagnoseKnownSet() error = %v", err)
	}
	if !again.Cached {
		t.Error("reordered known set should be served from cache")
	}
}

func TestService_DiagnoseKnownSet_UnknownTarget(t *testing.T) {
	cache := advisor.NewMemoryCache(0)
	events := advisor.NewMemoryEventLogger()
	svc := advisor.NewService(testEngine(t), advisor.WithCache(cache), advisor.WithEventLogger(events))

	_, err := svc.DiagnoseKnownSet(context.Background(), diagnosis.KnownSetInput{TargetTopicCode: "NOPE"})
	if !errors.Is(err, diagnosis.ErrTopicNotFound) {
		t.Fatalf("error = %v, want ErrTopicNotFound", err)
	}
	if cache.Len() != 0 {
		t.Errorf("errors should not be cached, cache.Len() = %d", cache.Len())
	}
	if got := events.Events(); len(got) != 1 || got[0].EventType != advisor.EventDiagnosisFailed {
		t.Errorf("events = %+v, want one failed event", got)
	}
}

func TestService_PlanKnownSet(t *testing.T) {
	svc := advisor.NewService(testEngine(t))

	res, err := svc.PlanKnownSet(context.Background(), diagnosis.KnownSetInput{TargetTopicCode: "A", KnownTopicCodes: []string{"E"}})
	if err != nil {
		t.Fatalf("PlanKnownSet() error = %v", err)
	}
	if res.Value.EstimatedWeeks != 8 {
		t.Errorf("EstimatedWeeks = %d, want 8", res.Value.EstimatedWeeks)
	}
	if res.Cached {
		t.Error("NopCache should never report a hit")
	}
}

// countingCache counts reads so coalesced calls can be observed.
type countingCache struct {
	advisor.ResultCache
	gets    atomic.Int32
	release chan struct{}
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets.Add(1)
	<-c.release
	return c.ResultCache.Get(ctx, key)
}

func TestService_CoalescesConcurrentRequests(t *testing.T) {
	cache := &countingCache{ResultCache: advisor.NewMemoryCache(0), release: make(chan struct{})}
	svc := advisor.NewService(testEngine(t), advisor.WithCache(cache))
	in := diagnosis.DiagnosticInput{CurrentTopicCode: "A", MasteryLevel: diagnosis.MasteryMid}

	const callers = 8
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]advisor.Result[diagnosis.DiagnosticOutput], callers)
	started.Add(callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			res, err := svc.DiagnoseLevel(context.Background(), in)
			if err != nil {
				t.Errorf("DiagnoseLevel() error = %v", err)
			}
			results[i] = res
		}()
	}
	started.Wait()
	// Give every caller time to join the in-flight call before it finishes.
	time.Sleep(50 * time.Millisecond)
	close(cache.release)
	wg.Wait()

	if got := cache.gets.Load(); got >= callers {
		t.Errorf("cache reads = %d, want fewer than %d callers", got, callers)
	}
	for i := 1; i < callers; i++ {
		if diff := cmp.Diff(results[0].Value, results[i].Value, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("result %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestService_CatalogueVersionIsolatesCache(t *testing.T) {
	cache := advisor.NewMemoryCache(0)
	ctx := context.Background()
	in := diagnosis.DiagnosticInput{CurrentTopicCode: "A", MasteryLevel: diagnosis.MasteryLow}

	if _, err := advisor.NewService(testEngine(t), advisor.WithCache(cache)).DiagnoseLevel(ctx, in); err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}

	cat, err := curriculum.NewCatalogue([]curriculum.TopicNode{
		{Code: "A", DisplayName: "Topic A", GradeLevel: "middle-2", Category: curriculum.CategoryAlgebra, EstimatedHours: 1, DifficultyRating: 1},
	}, curriculum.DefaultGradeScale(), curriculum.GapPatternTable{})
	if err != nil {
		t.Fatalf("NewCatalogue() error = %v", err)
	}
	res, err := advisor.NewService(diagnosis.NewEngine(cat, diagnosis.Config{}), advisor.WithCache(cache)).DiagnoseLevel(ctx, in)
	if err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}
	if res.Cached {
		t.Error("a different catalogue version must not read the old entry")
	}
	if len(res.Value.MissingPrerequisites) != 0 {
		t.Errorf("MissingPrerequisites = %v, want none", res.Value.MissingPrerequisites)
	}
}

func TestService_DiagnoseLevel_RejectsMissingMastery(t *testing.T) {
	cache := advisor.NewMemoryCache(0)
	svc := advisor.NewService(testEngine(t), advisor.WithCache(cache))

	_, err := svc.DiagnoseLevel(context.Background(), diagnosis.DiagnosticInput{CurrentTopicCode: "A"})
	if !errors.Is(err, diagnosis.ErrInvalidInput) {
		t.Fatalf("DiagnoseLevel() error = %v, want ErrInvalidInput", err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache.Len() = %d, want 0", cache.Len())
	}
}

func TestService_EngineConfigIsolatesCache(t *testing.T) {
	cache := advisor.NewMemoryCache(0)
	ctx := context.Background()
	in := diagnosis.DiagnosticInput{CurrentTopicCode: "A", MasteryLevel: diagnosis.MasteryLow}

	narrow, err := advisor.NewService(testEngine(t), advisor.WithCache(cache)).DiagnoseLevel(ctx, in)
	if err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}
	if got := len(narrow.Value.CurriculumSchedule); got != 4 {
		t.Fatalf("len(CurriculumSchedule) = %d, want 4", got)
	}

	wide := chainEngine(t, diagnosis.Config{ScheduleWeekCapHours: 100, EstimateHoursPerWeek: 100}, curriculum.GapPatternTable{})
	res, err := advisor.NewService(wide, advisor.WithCache(cache)).DiagnoseLevel(ctx, in)
	if err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}
	if res.Cached {
		t.Error("a different engine config must not read the old entry")
	}
	if got := len(res.Value.CurriculumSchedule); got != 1 {
		t.Errorf("len(CurriculumSchedule) = %d, want 1", got)
	}
	if res.Value.EstimatedWeeks != 1 {
		t.Errorf("EstimatedWeeks = %d, want 1", res.Value.EstimatedWeeks)
	}
}

func TestService_GapPatternsIsolateCache(t *testing.T) {
	cache := advisor.NewMemoryCache(0)
	ctx := context.Background()
	in := diagnosis.DiagnosticInput{CurrentTopicCode: "A", MasteryLevel: diagnosis.MasteryLow}

	plain, err := advisor.NewService(testEngine(t), advisor.WithCache(cache)).DiagnoseLevel(ctx, in)
	if err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}
	if len(plain.Value.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none", plain.Value.Warnings)
	}

	patterns := curriculum.NewGapPatternTable([]curriculum.GapPattern{{Code: "A", RealGapCodes: []string{"D", "E"}}})
	res, err := advisor.NewService(chainEngine(t, diagnosis.Config{}, patterns), advisor.WithCache(cache)).DiagnoseLevel(ctx, in)
	if err != nil {
		t.Fatalf("DiagnoseLevel() error = %v", err)
	}
	if res.Cached {
		t.Error("a different gap pattern table must not read the old entry")
	}
	want := []string{"Topic A: the real gap is typically Topic D, Topic E"}
	if diff := cmp.Diff(want, res.Value.Warnings); diff != "" {
		t.Errorf("Warnings mismatch (-want +got):\n%s", diff)
	}
}
