package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/ai/gemini"
	"github.com/spigell/assessment-recommender/internal/ai/openai"
	"github.com/spigell/assessment-recommender/internal/secrets"
)

const (
	providerGemini = gemini.Provider
	providerOpenAI = openai.Provider
)

// providers lazily creates at most one client per provider so the generator
// and the embedder can share it.
type providers struct {
	cfg    *AIConfig
	logger *zap.Logger

	oai   *openai.Client
	genai *geminiPair
}

type geminiPair struct {
	generator *gemini.Generator
	embedder  *gemini.Embedder
}

func newProviders(cfg *AIConfig, logger *zap.Logger) *providers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &providers{cfg: cfg, logger: logger}
}

func (p *providers) params() ai.GenerationParams {
	return ai.GenerationParams{
		Temperature:     p.cfg.Temperature,
		MaxOutputTokens: p.cfg.MaxOutputTokens,
	}
}

// Generator returns the completion client of ai.provider.
func (p *providers) Generator(ctx context.Context) (ai.Generator, error) {
	switch name := normalizeProvider(p.cfg.Provider); name {
	case providerGemini:
		pair, err := p.geminiClients(ctx)
		if err != nil {
			return nil, err
		}
		return pair.generator, nil
	case providerOpenAI:
		return p.openAIClient()
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", p.cfg.Provider)
	}
}

// Embedder returns the embedding client of ai.embedding-provider, which
// defaults to ai.provider.
func (p *providers) Embedder(ctx context.Context) (ai.Embedder, error) {
	name := normalizeProvider(p.cfg.EmbeddingProvider)
	if name == "" {
		name = normalizeProvider(p.cfg.Provider)
	}

	switch name {
	case providerGemini:
		pair, err := p.geminiClients(ctx)
		if err != nil {
			return nil, err
		}
		return pair.embedder, nil
	case providerOpenAI:
		client, err := p.openAIClient()
		if err != nil {
			return nil, err
		}
		return client.Embedder(), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
}

func (p *providers) geminiClients(ctx context.Context) (*geminiPair, error) {
	if p.genai != nil {
		return p.genai, nil
	}

	cfg := p.cfg.Gemini
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   []string{"GEMINI_API_KEY"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	opts := gemini.Options{
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		MaxRetries:     cfg.MaxRetries,
		Timeout:        p.cfg.Timeout,
		Params:         p.params(),
	}

	log := p.logger.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))

	generator, err := gemini.NewGenerator(client, opts, log)
	if err != nil {
		return nil, err
	}
	embedder, err := gemini.NewEmbedder(client, opts, log)
	if err != nil {
		return nil, err
	}

	p.genai = &geminiPair{generator: generator, embedder: embedder}
	return p.genai, nil
}

func (p *providers) openAIClient() (*openai.Client, error) {
	if p.oai != nil {
		return p.oai, nil
	}

	cfg := p.cfg.OpenAI
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   []string{"OPENAI_API_KEY", "GROQ_API_KEY"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.openai.api-key-file, OPENAI_API_KEY or GROQ_API_KEY)", err)
	}

	client, err := openai.New(apiKey, openai.Options{
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		MaxRetries:     cfg.MaxRetries,
		Timeout:        p.cfg.Timeout,
		Params:         p.params(),
	}, p.logger.With(zap.Int("ai_retry_attempts", cfg.MaxRetries)))
	if err != nil {
		return nil, err
	}

	p.oai = client
	return client, nil
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
