package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spigell/assessment-recommender/internal/ai"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

func embedResponse(n int) *genai.EmbedContentResponse {
	resp := &genai.EmbedContentResponse{}
	for i := 0; i < n; i++ {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: []float32{float32(i), 1}})
	}
	return resp
}

func TestEmbedderBatchesRequests(t *testing.T) {
	texts := make([]string, maxEmbedBatch+3)
	for i := range texts {
		texts[i] = fmt.Sprintf("doc %d", i)
	}

	fake := &fakeModels{queue: []fakeResponse{
		{embed: embedResponse(maxEmbedBatch)},
		{embed: embedResponse(3)},
	}}
	e := newEmbedder(fake, Options{}, zap.NewNop())

	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	if len(fake.batches) != 2 || len(fake.batches[0]) != maxEmbedBatch || len(fake.batches[1]) != 3 {
		t.Fatalf("unexpected batching: %d batches", len(fake.batches))
	}
	if e.Model() != defaultEmbeddingModel {
		t.Fatalf("expected default embedding model, got %s", e.Model())
	}
}

func TestEmbedderCountMismatch(t *testing.T) {
	fake := &fakeModels{queue: []fakeResponse{{embed: embedResponse(1)}}}
	e := newEmbedder(fake, Options{}, zap.NewNop())

	_, err := e.Embed(context.Background(), []string{"a", "b"})

	var embErr *ai.EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
}
