package ai

import (
	"context"
	"fmt"
)

// Generator is the narrow completion contract the pipeline depends on.
// Client library details never leak past implementations of it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Embedder turns texts into fixed-dimension vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// GenerationParams are the fixed sampling settings applied to every completion.
type GenerationParams struct {
	Temperature     float32
	MaxOutputTokens int
}

// DefaultGenerationParams favors literal compliance over creativity.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature:     0.3,
		MaxOutputTokens: 4000,
	}
}

// GenerationError reports a failed completion call (transport, auth, quota, timeout).
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports a failed embedding call.
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s embedding failed: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
