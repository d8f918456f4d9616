// Package evaluation measures the pipeline against labeled queries and
// produces batch predictions.
package evaluation

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/recommend"
	"github.com/spigell/assessment-recommender/internal/utils"
)

const DefaultK = 10

// Recommender is the part of the pipeline evaluation needs.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*recommend.Result, error)
}

type QueryResult struct {
	Query            string
	RelevantCount    int
	RecommendedCount int
	RelevantFound    int
	Recall           float64
	Err              error
}

type Report struct {
	K          int
	Results    []QueryResult
	MeanRecall float64
}

// RecallAtK is the share of relevant urls found among the first k
// recommended ones. It is 0 when nothing is relevant.
func RecallAtK(recommended []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k >= 0 && len(recommended) > k {
		recommended = recommended[:k]
	}

	found := 0
	for _, url := range recommended {
		if _, ok := relevant[url]; ok {
			found++
		}
	}
	return float64(found) / float64(len(relevant))
}

// Run evaluates every labeled query in order. A failing query scores 0 and
// does not stop the run; only a cancelled context does.
func Run(ctx context.Context, rec Recommender, labeled []Labeled, k int, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if k <= 0 {
		k = DefaultK
	}

	report := &Report{K: k, Results: make([]QueryResult, 0, len(labeled))}

	var total float64
	for i, item := range labeled {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		relevant := make(map[string]struct{}, len(item.Relevant))
		for _, url := range item.Relevant {
			relevant[url] = struct{}{}
		}

		res := QueryResult{Query: item.Query, RelevantCount: len(relevant)}

		log := logger.With(
			zap.Int("query_index", i+1),
			zap.String("query", utils.TruncateForLog(item.Query, 50)),
		)

		result, err := rec.Recommend(ctx, item.Query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("query failed", zap.Error(err))
			res.Err = err
			report.Results = append(report.Results, res)
			continue
		}

		urls := assessment.URLs(result.Recommendations)
		res.RecommendedCount = len(urls)
		for _, url := range urls {
			if _, ok := relevant[url]; ok {
				res.RelevantFound++
			}
		}
		res.Recall = RecallAtK(urls, relevant, k)
		total += res.Recall

		log.Info("query evaluated",
			zap.Int("relevant_found", res.RelevantFound),
			zap.Float64("recall", res.Recall),
			zap.String("source", string(result.Source)),
		)

		report.Results = append(report.Results, res)
	}

	if len(report.Results) > 0 {
		report.MeanRecall = total / float64(len(report.Results))
	}

	logger.Info("evaluation finished",
		zap.Int("queries", len(report.Results)),
		zap.Int("k", k),
		zap.Float64("mean_recall", report.MeanRecall),
	)
	return report, nil
}

// Predict runs every query and flattens the recommendations into rows. A
// failing query yields a single row with an empty url.
func Predict(ctx context.Context, rec Recommender, queries []string, logger *zap.Logger) ([]Prediction, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var predictions []Prediction
	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := rec.Recommend(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("query failed",
				zap.Int("query_index", i+1),
				zap.String("query", utils.TruncateForLog(query, 50)),
				zap.Error(err),
			)
			predictions = append(predictions, Prediction{Query: query})
			continue
		}

		for _, r := range result.Recommendations {
			predictions = append(predictions, Prediction{Query: query, URL: r.URL})
		}
		logger.Debug("query predicted",
			zap.Int("query_index", i+1),
			zap.Int("recommendations", len(result.Recommendations)),
		)
	}
	return predictions, nil
}
