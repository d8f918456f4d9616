package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultBatchSize           = 64
	defaultMaxDescriptionRunes = 1000
)

// BuildOptions tunes the offline corpus build.
type BuildOptions struct {
	BatchSize           int
	MaxDescriptionRunes int
}

// Build embeds the canonical rendering of every record, in order, and returns
// the resulting corpus. Descriptions longer than MaxDescriptionRunes are cut.
func Build(ctx context.Context, records []assessment.Record, embedder ai.Embedder, opts BuildOptions, logger *zap.Logger) (*Corpus, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(records) == 0 {
		return nil, errors.New("no records to index")
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxDesc := opts.MaxDescriptionRunes
	if maxDesc <= 0 {
		maxDesc = defaultMaxDescriptionRunes
	}

	prepared := make([]assessment.Record, len(records))
	documents := make([]string, len(records))
	for i, rec := range records {
		prepared[i] = prepareRecord(rec, maxDesc)
		documents[i] = prepared[i].Document()
	}

	vectors := make([][]float32, 0, len(records))
	for start := 0; start < len(documents); start += batchSize {
		end := min(start+batchSize, len(documents))

		batch, err := embedder.Embed(ctx, documents[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed records %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed records %d-%d: expected %d vectors, got %d", start, end-1, end-start, len(batch))
		}
		vectors = append(vectors, batch...)

		logger.Info("embedded corpus batch",
			zap.Int("done", end),
			zap.Int("total", len(documents)),
		)
	}

	return New(prepared, vectors, embedder.Model())
}

func prepareRecord(rec assessment.Record, maxDescription int) assessment.Record {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.URL = strings.TrimSpace(rec.URL)
	rec.Description = utils.Truncate(strings.TrimSpace(rec.Description), maxDescription)
	rec.Category = strings.TrimSpace(rec.Category)
	if rec.Category == "" {
		rec.Category = assessment.CategoryGeneral
	}
	rec.JobLevels = strings.TrimSpace(rec.JobLevels)
	rec.Languages = strings.TrimSpace(rec.Languages)
	rec.Length = strings.TrimSpace(rec.Length)
	return rec
}
