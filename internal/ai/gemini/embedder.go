package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/logger"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Embedder computes embeddings with the Gemini embedding models.
type Embedder struct {
	models  models
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewEmbedder builds an Embedder on top of an initialized genai client.
func NewEmbedder(client *genai.Client, opts Options, log *zap.Logger) (*Embedder, error) {
	if client == nil || client.Models == nil {
		return nil, errors.New("gemini client is not initialized")
	}
	return newEmbedder(client.Models, opts, log), nil
}

func newEmbedder(m models, opts Options, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(opts.EmbeddingModel)
	if model == "" {
		model = defaultEmbeddingModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Embedder{
		models:  m,
		model:   model,
		timeout: timeout,
		logger:  logger.WithCommonFields(log, Provider, model),
	}
}

// Embed returns one vector per text, in input order. Failures are *ai.EmbeddingError.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, &ai.EmbeddingError{Provider: Provider, Err: err}
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.models.EmbedContent(callCtx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at position %d", i)
		}
		vectors[i] = embedding.Values
	}

	e.logger.Debug("gemini embeddings computed", zap.Int("count", len(vectors)))
	return vectors, nil
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}
