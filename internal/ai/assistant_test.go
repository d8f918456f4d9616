package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestGenerationErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("recommend: %w", &GenerationError{Provider: "gemini", Err: context.DeadlineExceeded})

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if genErr.Provider != "gemini" {
		t.Fatalf("unexpected provider: %s", genErr.Provider)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error")
	}
}

func TestEmbeddingErrorMessage(t *testing.T) {
	t.Parallel()

	err := &EmbeddingError{Provider: "openai", Err: errors.New("connection refused")}
	if got := err.Error(); got != "openai embedding failed: connection refused" {
		t.Fatalf("unexpected message: %q", got)
	}
}
