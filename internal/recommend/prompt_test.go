package recommend

import (
	"strings"
	"testing"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

func TestBuildPromptRendersCandidatesInOrder(t *testing.T) {
	t.Parallel()

	candidates := testCandidates(3)
	candidates[1].JobLevels = "Mid-Professional"
	candidates[1].Languages = "English (USA)"
	candidates[2].Length = ""

	prompt := BuildPrompt("  Java developer, team player ", candidates, PromptOptions{})

	if !strings.Contains(prompt, `"Java developer, team player"`) {
		t.Fatalf("expected trimmed query in prompt, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "{{QUERY}}") || strings.Contains(prompt, "{{CANDIDATES}}") {
		t.Fatalf("expected placeholders to be replaced")
	}

	first := strings.Index(prompt, "1. **Assessment 0**")
	second := strings.Index(prompt, "2. **Assessment 1**")
	third := strings.Index(prompt, "3. **Assessment 2**")
	if first == -1 || second == -1 || third == -1 || !(first < second && second < third) {
		t.Fatalf("expected numbered blocks in retrieval order, got:\n%s", prompt)
	}

	for _, want := range []string{
		"   Type: Knowledge & Skills\n",
		"   Description: Measures skill 0\n",
		"   Job Levels: Mid-Professional\n",
		"   Languages: English (USA)\n",
		"   Assessment Length: 10 minutes\n",
		"   URL: https://example.com/a/2",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}

	if strings.Count(prompt, "Job Levels:") != 1 {
		t.Fatalf("expected optional fields only when present")
	}
	if strings.Count(prompt, "Assessment Length:") != 2 {
		t.Fatalf("expected empty length to be omitted")
	}
}

func TestBuildPromptCarriesOutputContract(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("query", testCandidates(1), PromptOptions{})

	for _, want := range []string{
		"5 to 10",
		"Never invent",
		`"Knowledge & Skills"`,
		`"Personality & Behavior"`,
		`"assessment_name"`,
		`"assessment_url"`,
		`"description"`,
		`"why_great_fit"`,
		`"assessment_length"`,
		"JSON array",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
}

func TestBuildPromptBoundsLength(t *testing.T) {
	t.Parallel()

	candidates := assessment.Candidates{{Record: assessment.Record{
		Name:        "Long",
		URL:         "https://example.com/long",
		Description: strings.Repeat("d", 100),
	}}}

	prompt := BuildPrompt(strings.Repeat("q", 50), candidates, PromptOptions{MaxQueryRunes: 10, MaxDescriptionRunes: 20})

	if !strings.Contains(prompt, `"`+strings.Repeat("q", 10)+`..."`) {
		t.Fatalf("expected query truncated to 10 runes")
	}
	if strings.Contains(prompt, strings.Repeat("q", 11)) {
		t.Fatalf("expected query to be bounded")
	}
	if !strings.Contains(prompt, "Description: "+strings.Repeat("d", 20)+"...\n") {
		t.Fatalf("expected description truncated to 20 runes")
	}
}
