package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/evaluation"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compute Mean Recall@K over a labeled query set",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Write recommendations for every query of a csv",
	Run: func(cmd *cobra.Command, _ []string) {
		predict(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(predictCmd)

	evaluateCmd.Flags().StringP("input", "i", "train_set.csv", "labeled csv with Query and Assessment_url columns")
	evaluateCmd.Flags().StringP("output", "o", "evaluation_results.csv", "per-query results csv, empty to skip")
	evaluateCmd.Flags().IntP("k", "k", evaluation.DefaultK, "cut-off for recall")

	predictCmd.Flags().StringP("input", "i", "test_set.csv", "csv with a Query column")
	predictCmd.Flags().StringP("output", "o", "test_predictions.csv", "predictions csv to write")
}

func evaluate(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	k, _ := cmd.Flags().GetInt("k")

	f, err := os.Open(input)
	if err != nil {
		logger.Fatal("opening labeled set", zap.Error(err))
	}
	defer f.Close()

	labeled, err := evaluation.ReadLabeled(f)
	if err != nil {
		logger.Fatal("reading labeled set", zap.Error(err))
	}
	logger.Info("labeled set read", zap.String("input", input), zap.Int("queries", len(labeled)))

	engine, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	report, err := evaluation.Run(ctx, engine, labeled, k, logger.Named("evaluate"))
	if err != nil {
		logger.Fatal("evaluating", zap.Error(err))
	}

	if output != "" {
		if err := writeFile(output, report.WriteCSV); err != nil {
			logger.Fatal("writing results", zap.Error(err))
		}
		logger.Info("results saved", zap.String("output", output))
	}

	fmt.Printf("Mean Recall@%d: %.4f over %d queries\n", report.K, report.MeanRecall, len(report.Results))
}

func predict(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")

	f, err := os.Open(input)
	if err != nil {
		logger.Fatal("opening query set", zap.Error(err))
	}
	defer f.Close()

	queries, err := evaluation.ReadQueries(f)
	if err != nil {
		logger.Fatal("reading query set", zap.Error(err))
	}

	engine, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	predictions, err := evaluation.Predict(ctx, engine, queries, logger.Named("predict"))
	if err != nil {
		logger.Fatal("predicting", zap.Error(err))
	}

	err = writeFile(output, func(w io.Writer) error {
		return evaluation.WritePredictions(w, predictions)
	})
	if err != nil {
		logger.Fatal("writing predictions", zap.Error(err))
	}

	logger.Info("predictions saved",
		zap.String("output", output),
		zap.Int("queries", len(queries)),
		zap.Int("rows", len(predictions)),
	)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
