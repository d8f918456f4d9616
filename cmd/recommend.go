package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/recommend"
)

const PromptExit = "exit"

var recommendCmd = &cobra.Command{
	Use:   "recommend <query or url>",
	Short: "Recommend assessments for a single query",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRecommend(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().BoolP("yes", "y", false, "do not ask to show recommendation details")
	recommendCmd.Flags().Bool("json-output", false, "print the result as json to stdout")
}

func runRecommend(cmd *cobra.Command, query string) {
	ctx := context.Background()

	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	engine, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	result, err := engine.Recommend(ctx, query)
	if err != nil {
		logger.Fatal("recommending", zap.Error(err))
	}

	jsonOutput, _ := cmd.Flags().GetBool("json-output")
	if jsonOutput {
		if err := printJSON(os.Stdout, result); err != nil {
			logger.Fatal("writing result", zap.Error(err))
		}
		return
	}

	printSummary(os.Stdout, result)

	autoApprove, _ := cmd.Flags().GetBool("yes")
	if autoApprove || len(result.Recommendations) == 0 {
		return
	}

	if err := browseDetails(os.Stdout, result.Recommendations); err != nil && !errors.Is(err, promptui.ErrInterrupt) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func printJSON(w io.Writer, result *recommend.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"query":           result.Query,
		"recommendations": result.Recommendations,
	})
}

func printSummary(w io.Writer, result *recommend.Result) {
	fmt.Fprintf(w, "%d recommendations (%s):\n", len(result.Recommendations), result.Source)
	for i, rec := range result.Recommendations {
		fmt.Fprintf(w, "%2d. %s\n    %s\n    length: %s\n", i+1, rec.Name, rec.URL, rec.Length)
	}
}

func browseDetails(w io.Writer, recs []assessment.Recommendation) error {
	items := make([]string, 0, len(recs)+1)
	for i, rec := range recs {
		items = append(items, fmt.Sprintf("%d %s", i+1, rec.Name))
	}
	items = append(items, PromptExit)

	for {
		detailsPrompt := promptui.Select{
			Label: "Choose a recommendation to see details",
			Items: items,
			Size:  len(items),
		}

		idx, selected, err := detailsPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptExit {
			return nil
		}

		rec := recs[idx]
		fmt.Fprintf(w, "\n%s\n%s\n\nDescription: %s\nWhy it fits: %s\nLength: %s\n\n",
			rec.Name, rec.URL, rec.Description, rec.WhyGreatFit, rec.Length)
	}
}
