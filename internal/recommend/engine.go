// Package recommend implements the recommendation pipeline: normalize the
// query, retrieve candidates, let the generator select among them and
// validate its answer, falling back to the retrieval order when it fails.
package recommend

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/utils"
)

const defaultMaxLogLength = 200

// Source tells which path produced a result.
type Source string

const (
	SourceGenerator Source = "generator"
	SourceFallback  Source = "fallback"
)

// Normalizer turns a raw query into plain text.
type Normalizer interface {
	Normalize(ctx context.Context, query string) (string, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Query           string
	NormalizedQuery string
	Recommendations []assessment.Recommendation
	Source          Source
}

type Options struct {
	TopK         int
	Prompt       PromptOptions
	MaxLogLength int
}

// Engine runs the pipeline. It holds only read-only collaborators and is safe
// for concurrent use.
type Engine struct {
	normalizer Normalizer
	retriever  *Retriever
	generator  ai.Generator
	topK       int
	prompt     PromptOptions
	maxLogLen  int
	logger     *zap.Logger
}

func NewEngine(normalizer Normalizer, retriever *Retriever, generator ai.Generator, opts Options, logger *zap.Logger) (*Engine, error) {
	if normalizer == nil {
		return nil, errors.New("normalizer is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Engine{
		normalizer: normalizer,
		retriever:  retriever,
		generator:  generator,
		topK:       opts.TopK,
		prompt:     opts.Prompt.withDefaults(),
		maxLogLen:  maxLogLen,
		logger:     logger,
	}, nil
}

// Recommend runs the whole pipeline for query. Only ErrEmptyQuery,
// *normalize.FetchError, *corpus.Error, *ai.EmbeddingError and context errors
// are returned; generation and parse failures end in the fallback list.
func (e *Engine) Recommend(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	started := time.Now()
	log := e.logger

	normalized, err := e.normalizer.Normalize(ctx, query)
	if err != nil {
		return nil, err
	}
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	candidates, err := e.retriever.Retrieve(ctx, normalized, e.topK)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Query:           query,
		NormalizedQuery: normalized,
	}

	if len(candidates) == 0 {
		log.Warn("no candidates retrieved, returning empty list")
		result.Recommendations = []assessment.Recommendation{}
		result.Source = SourceFallback
		return result, nil
	}

	recs, err := e.rerank(ctx, normalized, candidates)
	switch {
	case err == nil:
		result.Recommendations = recs
		result.Source = SourceGenerator
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		log.Warn("falling back to retrieval order", zap.Error(err))
		result.Recommendations = Fallback(candidates)
		result.Source = SourceFallback
	}

	log.Info("recommendations ready",
		zap.Int("candidates", len(candidates)),
		zap.Int("recommendations", len(result.Recommendations)),
		zap.String("source", string(result.Source)),
		zap.Duration("took", time.Since(started)),
	)
	return result, nil
}

func (e *Engine) rerank(ctx context.Context, query string, candidates assessment.Candidates) ([]assessment.Recommendation, error) {
	prompt := BuildPrompt(query, candidates, e.prompt)

	e.logger.Debug("generate request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		var genErr *ai.GenerationError
		if !errors.As(err, &genErr) {
			err = &ai.GenerationError{Provider: e.generator.Model(), Err: err}
		}
		return nil, err
	}

	e.logger.Debug("generate response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return Validate(raw, candidates)
}
