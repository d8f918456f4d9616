package evaluation

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/recommend"
)

type fakeRecommender struct {
	results map[string][]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRecommender) Recommend(ctx context.Context, query string) (*recommend.Result, error) {
	f.calls = append(f.calls, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}

	recs := make([]assessment.Recommendation, 0, len(f.results[query]))
	for _, url := range f.results[query] {
		recs = append(recs, assessment.Recommendation{Name: url, URL: url})
	}
	return &recommend.Result{Query: query, Recommendations: recs, Source: recommend.SourceGenerator}, nil
}

func set(urls ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		out[u] = struct{}{}
	}
	return out
}

func TestRecallAtK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		recommended []string
		relevant    map[string]struct{}
		k           int
		expect      float64
	}{
		{name: "no relevant", recommended: []string{"a"}, relevant: nil, k: 10, expect: 0},
		{name: "all found", recommended: []string{"a", "b"}, relevant: set("a", "b"), k: 10, expect: 1},
		{name: "half found", recommended: []string{"a", "x"}, relevant: set("a", "b"), k: 10, expect: 0.5},
		{name: "beyond k ignored", recommended: []string{"x", "y", "a"}, relevant: set("a"), k: 2, expect: 0},
		{name: "nothing recommended", recommended: nil, relevant: set("a", "b", "c"), k: 10, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RecallAtK(tt.recommended, tt.relevant, tt.k); math.Abs(got-tt.expect) > 1e-9 {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestRunComputesMeanRecall(t *testing.T) {
	t.Parallel()

	rec := &fakeRecommender{
		results: map[string][]string{
			"java":    {"a", "b", "c"},
			"analyst": {"x", "d"},
		},
		errs: map[string]error{
			"broken": errors.New("embedding failed"),
		},
	}

	labeled := []Labeled{
		{Query: "java", Relevant: []string{"a", "b"}},
		{Query: "analyst", Relevant: []string{"d", "e", "f", "g"}},
		{Query: "broken", Relevant: []string{"a"}},
	}

	core, logs := observer.New(zapcore.WarnLevel)

	report, err := Run(context.Background(), rec, labeled, 0, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.K != DefaultK {
		t.Fatalf("expected default k %d, got %d", DefaultK, report.K)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}

	java := report.Results[0]
	if java.Recall != 1 || java.RelevantFound != 2 || java.RecommendedCount != 3 {
		t.Fatalf("unexpected java result: %+v", java)
	}
	if report.Results[1].Recall != 0.25 {
		t.Fatalf("expected analyst recall 0.25, got %v", report.Results[1].Recall)
	}
	if report.Results[2].Err == nil || report.Results[2].Recall != 0 {
		t.Fatalf("expected failed query to score 0 with its error, got %+v", report.Results[2])
	}

	expectedMean := (1 + 0.25 + 0) / 3
	if math.Abs(report.MeanRecall-expectedMean) > 1e-9 {
		t.Fatalf("expected mean %v, got %v", expectedMean, report.MeanRecall)
	}

	if logs.FilterMessage("query failed").Len() != 1 {
		t.Fatalf("expected one warning for the failed query")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &fakeRecommender{}
	if _, err := Run(ctx, rec, []Labeled{{Query: "q", Relevant: []string{"a"}}}, 10, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no pipeline calls")
	}
}

func TestPredict(t *testing.T) {
	t.Parallel()

	rec := &fakeRecommender{
		results: map[string][]string{"java": {"a", "b"}},
		errs:    map[string]error{"broken": errors.New("fetch failed")},
	}

	predictions, err := Predict(context.Background(), rec, []string{"java", "broken"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []Prediction{
		{Query: "java", URL: "a"},
		{Query: "java", URL: "b"},
		{Query: "broken", URL: ""},
	}
	if len(predictions) != len(expected) {
		t.Fatalf("expected %d predictions, got %d", len(expected), len(predictions))
	}
	for i := range expected {
		if predictions[i] != expected[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, expected[i], predictions[i])
		}
	}
}
