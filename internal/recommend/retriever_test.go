package recommend

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/corpus"
)

func newTestRetriever(t *testing.T, n int, embedder *fakeEmbedder, opts RetrieverOptions) *Retriever {
	t.Helper()

	records := make([]assessment.Record, n)
	for i := range records {
		records[i] = testRecord(i)
	}

	r, err := NewRetriever(testCorpus(records), embedder, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestRetrieveOrdersByDistance(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, 30, &fakeEmbedder{vector: []float32{0, 0}}, RetrieverOptions{})

	candidates, err := r.Retrieve(context.Background(), "java developer", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != DefaultTopK {
		t.Fatalf("expected %d candidates, got %d", DefaultTopK, len(candidates))
	}
	for i, c := range candidates {
		if c.Position != i {
			t.Fatalf("candidate %d: expected corpus position %d, got %d", i, i, c.Position)
		}
	}
}

func TestRetrieveSmallCorpus(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, 3, &fakeEmbedder{vector: []float32{0, 0}}, RetrieverOptions{})

	candidates, err := r.Retrieve(context.Background(), "query", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
}

func TestRetrieveCachesQueryEmbeddings(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	r := newTestRetriever(t, 5, embedder, RetrieverOptions{CacheSize: 8})

	for range 3 {
		if _, err := r.Retrieve(context.Background(), "same query", 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := embedder.callCount(); got != 1 {
		t.Fatalf("expected one embedding call, got %d", got)
	}

	if _, err := r.Retrieve(context.Background(), "other query", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := embedder.callCount(); got != 2 {
		t.Fatalf("expected a new embedding call for a new query, got %d", got)
	}
}

func TestRetrieveWithoutCache(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	r := newTestRetriever(t, 5, embedder, RetrieverOptions{CacheSize: -1})

	for range 2 {
		if _, err := r.Retrieve(context.Background(), "same query", 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := embedder.callCount(); got != 2 {
		t.Fatalf("expected two embedding calls, got %d", got)
	}
}

func TestRetrieveWrapsEmbeddingFailure(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, 5, &fakeEmbedder{err: errors.New("connection refused")}, RetrieverOptions{})

	_, err := r.Retrieve(context.Background(), "query", 5)

	var embedErr *ai.EmbeddingError
	if !errors.As(err, &embedErr) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestRetrieveDimensionMismatchIsCorpusError(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, 5, &fakeEmbedder{vector: []float32{0, 0, 0}}, RetrieverOptions{})

	_, err := r.Retrieve(context.Background(), "query", 5)

	var corpusErr *corpus.Error
	if !errors.As(err, &corpusErr) {
		t.Fatalf("expected corpus error, got %v", err)
	}
}

func TestNewRetrieverRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeEmbedder{}, RetrieverOptions{}, nil); err == nil {
		t.Fatalf("expected error for missing index")
	}
	if _, err := NewRetriever(testCorpus(nil), nil, RetrieverOptions{}, nil); err == nil {
		t.Fatalf("expected error for missing embedder")
	}
}
