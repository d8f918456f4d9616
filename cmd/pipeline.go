package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/corpus"
	"github.com/spigell/assessment-recommender/internal/normalize"
	"github.com/spigell/assessment-recommender/internal/recommend"
)

// newEngine loads the corpus and wires the recommendation pipeline. A missing
// or inconsistent corpus fails here, before anything is served.
func newEngine(ctx context.Context, config *Config, logger *zap.Logger) (*recommend.Engine, error) {
	store, err := corpus.Load(config.Corpus.Path)
	if err != nil {
		return nil, err
	}

	logger.Info("corpus loaded",
		zap.String("path", config.Corpus.Path),
		zap.Int("records", store.Len()),
		zap.Int("dimension", store.Dimension()),
		zap.String("embedding_model", store.Model()),
		zap.Time("built_at", store.BuiltAt()),
	)

	p := newProviders(&config.AI, logger)

	embedder, err := p.Embedder(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	if store.Model() != "" && embedder.Model() != store.Model() {
		logger.Warn("query embedding model differs from the corpus model",
			zap.String("corpus_model", store.Model()),
			zap.String("query_model", embedder.Model()),
			zap.String("hint", "rebuild the corpus with build-corpus"),
		)
	}

	generator, err := p.Generator(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	normalizer := normalize.New(normalize.Options{
		Timeout:      config.Normalizer.Timeout,
		UserAgent:    config.Normalizer.UserAgent,
		MaxBodyBytes: config.Normalizer.MaxBodyBytes,
	}, logger.Named("normalize"))

	retriever, err := recommend.NewRetriever(store, embedder, recommend.RetrieverOptions{
		TopK:         config.Retrieval.TopK,
		EmbedTimeout: config.Retrieval.EmbedTimeout,
		CacheSize:    config.Retrieval.CacheSize,
	}, logger.Named("retrieve"))
	if err != nil {
		return nil, err
	}

	return recommend.NewEngine(normalizer, retriever, generator, recommend.Options{
		TopK: config.Retrieval.TopK,
		Prompt: recommend.PromptOptions{
			MaxQueryRunes:       config.Prompt.MaxQueryRunes,
			MaxDescriptionRunes: config.Prompt.MaxDescriptionRunes,
		},
		MaxLogLength: config.AI.MaxLogLength,
	}, logger.Named("recommend"))
}
