package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/corpus"
)

var buildCmd = &cobra.Command{
	Use:   "build-corpus",
	Short: "Embed the assessment catalog csv into a corpus file",
	Run: func(cmd *cobra.Command, _ []string) {
		buildCorpus(cmd)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("input", "i", "data/assessments.csv", "catalog csv produced by the scraper")
	buildCmd.Flags().StringP("output", "o", "", "corpus file to write, gzip when it ends with .gz (default from corpus.path)")
	buildCmd.Flags().Int("batch-size", 64, "texts per embedding request")
	buildCmd.Flags().Int("max-description-runes", 1000, "descriptions are cut to this many runes")
}

func buildCorpus(cmd *cobra.Command) {
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
	if output == "" {
		output = config.Corpus.Path
	}
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	maxDescription, _ := cmd.Flags().GetInt("max-description-runes")

	f, err := os.Open(input)
	if err != nil {
		logger.Fatal("opening catalog", zap.Error(err))
	}
	defer f.Close()

	records, err := corpus.ReadCSV(f)
	if err != nil {
		logger.Fatal("reading catalog", zap.String("input", input), zap.Error(err))
	}
	logger.Info("catalog read", zap.String("input", input), zap.Int("records", len(records)))

	embedder, err := newProviders(&config.AI, logger).Embedder(ctx)
	if err != nil {
		logger.Fatal("creating embedder", zap.Error(err))
	}

	built, err := corpus.Build(ctx, records, embedder, corpus.BuildOptions{
		BatchSize:           batchSize,
		MaxDescriptionRunes: maxDescription,
	}, logger.Named("build"))
	if err != nil {
		logger.Fatal("building corpus", zap.Error(err))
	}

	if err := built.Save(output); err != nil {
		logger.Fatal("saving corpus", zap.Error(err))
	}

	logger.Info("corpus saved",
		zap.String("output", output),
		zap.Int("records", built.Len()),
		zap.Int("dimension", built.Dimension()),
		zap.String("embedding_model", built.Model()),
	)
}
