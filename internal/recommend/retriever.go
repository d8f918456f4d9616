package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/corpus"
)

const (
	DefaultTopK         = 20
	defaultEmbedTimeout = 15 * time.Second
	defaultCacheSize    = 256
)

// Index is the nearest-neighbour contract of the corpus.
type Index interface {
	Search(query []float32, k int) (assessment.Candidates, error)
}

type RetrieverOptions struct {
	TopK         int
	EmbedTimeout time.Duration
	// CacheSize bounds the query embedding cache. Negative disables it.
	CacheSize int
}

// Retriever embeds queries and looks up their nearest corpus records.
// It is safe for concurrent use.
type Retriever struct {
	index        Index
	embedder     ai.Embedder
	topK         int
	embedTimeout time.Duration
	cache        *lru.Cache[string, []float32]
	logger       *zap.Logger
}

func NewRetriever(index Index, embedder ai.Embedder, opts RetrieverOptions, logger *zap.Logger) (*Retriever, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Retriever{
		index:        index,
		embedder:     embedder,
		topK:         opts.TopK,
		embedTimeout: opts.EmbedTimeout,
		logger:       logger,
	}
	if r.topK <= 0 {
		r.topK = DefaultTopK
	}
	if r.embedTimeout <= 0 {
		r.embedTimeout = defaultEmbedTimeout
	}

	size := opts.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[string, []float32](size)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		r.cache = cache
	}

	return r, nil
}

// TopK is the default number of candidates returned by Retrieve.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns up to k candidates nearest to query, ascending by distance.
// A non-positive k uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (assessment.Candidates, error) {
	if k <= 0 {
		k = r.topK
	}

	vector, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := r.index.Search(vector, k)
	if err != nil {
		return nil, &corpus.Error{Reason: "search", Err: err}
	}

	r.logger.Debug("retrieved candidates",
		zap.Int("requested", k),
		zap.Int("found", len(candidates)),
	)
	return candidates, nil
}

func (r *Retriever) embed(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		if vector, ok := r.cache.Get(query); ok {
			r.logger.Debug("query embedding cache hit")
			return vector, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		var embedErr *ai.EmbeddingError
		if errors.As(err, &embedErr) {
			return nil, err
		}
		return nil, &ai.EmbeddingError{Provider: r.embedder.Model(), Err: err}
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, &ai.EmbeddingError{
			Provider: r.embedder.Model(),
			Err:      fmt.Errorf("expected one vector, got %d", len(vectors)),
		}
	}

	if r.cache != nil {
		r.cache.Add(query, vectors[0])
	}
	return vectors[0], nil
}
