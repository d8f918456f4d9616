package recommend

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxQueryRunes       = 6000
	defaultMaxDescriptionRunes = 600
)

// PromptOptions bound the size of the assembled prompt.
type PromptOptions struct {
	MaxQueryRunes       int
	MaxDescriptionRunes int
}

func (o PromptOptions) withDefaults() PromptOptions {
	if o.MaxQueryRunes <= 0 {
		o.MaxQueryRunes = defaultMaxQueryRunes
	}
	if o.MaxDescriptionRunes <= 0 {
		o.MaxDescriptionRunes = defaultMaxDescriptionRunes
	}
	return o
}

// BuildPrompt renders the candidates in retrieval order into the generation
// prompt for query.
func BuildPrompt(query string, candidates assessment.Candidates, opts PromptOptions) string {
	opts = opts.withDefaults()

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Query:\n{{QUERY}}\n\nCandidates:\n{{CANDIDATES}}\n\nJSON array:"
	}

	prompt := strings.ReplaceAll(template, "{{QUERY}}", utils.Truncate(strings.TrimSpace(query), opts.MaxQueryRunes))
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATES}}", renderCandidates(candidates, opts.MaxDescriptionRunes))
	return prompt
}

func renderCandidates(candidates assessment.Candidates, maxDescription int) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, c.Name)
		fmt.Fprintf(&b, "   Type: %s\n", c.Category)
		fmt.Fprintf(&b, "   Description: %s\n", utils.Truncate(c.Description, maxDescription))
		writeOptional(&b, "Job Levels", c.JobLevels)
		writeOptional(&b, "Languages", c.Languages)
		writeOptional(&b, "Assessment Length", c.Length)
		fmt.Fprintf(&b, "   URL: %s\n\n", c.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeOptional(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "   %s: %s\n", label, value)
	}
}
