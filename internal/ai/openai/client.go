// Package openai implements the generator and embedder contracts against any
// OpenAI-compatible API (OpenAI itself, Groq and similar).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/utils"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	Provider = "openai"

	defaultModel          = "llama-3.1-8b-instant"
	defaultEmbeddingModel = string(goopenai.SmallEmbedding3)
	defaultTimeout        = 60 * time.Second
	defaultRetryDelay     = time.Second
	maxEmbedBatch         = 256
)

var errNoChoices = errors.New("no completion choices returned")

// api is the subset of the go-openai client the package depends on.
type api interface {
	CreateChatCompletion(ctx context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// Options configures the client. BaseURL selects the compatible endpoint,
// e.g. https://api.groq.com/openai/v1.
type Options struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	Timeout        time.Duration
	Params         ai.GenerationParams
}

// Client implements ai.Generator and ai.Embedder.
type Client struct {
	api            api
	model          string
	embeddingModel string
	params         ai.GenerationParams
	maxRetries     int
	retryDelay     time.Duration
	timeout        time.Duration
	logger         *zap.Logger
}

// New creates a client for the given api key.
func New(apiKey string, opts Options, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return newClient(goopenai.NewClientWithConfig(cfg), opts, log), nil
}

func newClient(a api, opts Options, log *zap.Logger) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	embeddingModel := strings.TrimSpace(opts.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	params := opts.Params
	if params.MaxOutputTokens <= 0 {
		params.MaxOutputTokens = ai.DefaultGenerationParams().MaxOutputTokens
	}

	return &Client{
		api:            a,
		model:          model,
		embeddingModel: embeddingModel,
		params:         params,
		maxRetries:     opts.MaxRetries,
		retryDelay:     defaultRetryDelay,
		timeout:        timeout,
		logger:         logger.WithCommonFields(log, Provider, model),
	}
}

// Generate sends the prompt as a single user message. Failures are *ai.GenerationError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &ai.GenerationError{Provider: Provider, Err: errors.New("prompt must not be empty")}
	}

	request := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.params.Temperature,
		MaxTokens:   c.params.MaxOutputTokens,
	}

	var content string
	err := c.withRetries(ctx, func(callCtx context.Context) error {
		resp, err := c.api.CreateChatCompletion(callCtx, request)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errNoChoices
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return errNoChoices
		}
		return nil
	})
	if err != nil {
		return "", &ai.GenerationError{Provider: Provider, Err: err}
	}

	return content, nil
}

// Embed returns one vector per text in input order. Failures are *ai.EmbeddingError.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))
		batch := texts[start:end]

		var resp goopenai.EmbeddingResponse
		err := c.withRetries(ctx, func(callCtx context.Context) error {
			var err error
			resp, err = c.api.CreateEmbeddings(callCtx, goopenai.EmbeddingRequestStrings{
				Input: batch,
				Model: goopenai.EmbeddingModel(c.embeddingModel),
			})
			return err
		})
		if err != nil {
			return nil, &ai.EmbeddingError{Provider: Provider, Err: err}
		}

		ordered, err := orderEmbeddings(resp, len(batch))
		if err != nil {
			return nil, &ai.EmbeddingError{Provider: Provider, Err: err}
		}
		vectors = append(vectors, ordered...)
	}

	return vectors, nil
}

// orderEmbeddings places each returned vector by its reported index.
func orderEmbeddings(resp goopenai.EmbeddingResponse, expected int) ([][]float32, error) {
	if len(resp.Data) != expected {
		return nil, fmt.Errorf("expected %d embeddings, got %d", expected, len(resp.Data))
	}

	ordered := make([][]float32, expected)
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= expected || ordered[item.Index] != nil {
			return nil, fmt.Errorf("unexpected embedding index %d", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", item.Index)
		}
		ordered[item.Index] = item.Embedding
	}

	return ordered, nil
}

func (c *Client) withRetries(ctx context.Context, call func(context.Context) error) error {
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := utils.WaitFor(ctx, utils.Backoff(c.retryDelay, attempt-1)); err != nil {
				return err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := call(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		if !retryable(err) || attempt == attempts {
			break
		}

		c.logger.Warn("openai request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
	}

	return fmt.Errorf("attempt limit reached: %w", lastErr)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errNoChoices) {
		return true
	}

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return false
	}

	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Embedder exposes the client under the embedding model name.
func (c *Client) Embedder() ai.Embedder {
	return embedder{c}
}

type embedder struct {
	*Client
}

func (e embedder) Model() string {
	return e.embeddingModel
}
