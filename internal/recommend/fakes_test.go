package recommend

import (
	"context"
	"fmt"
	"sync"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/corpus"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), f.vector...)
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string {
	return "fake-embedder"
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
	respond  func(prompt string) string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if f.respond != nil {
		return f.respond(prompt), nil
	}
	return f.response, nil
}

func (f *fakeGenerator) Model() string {
	return "fake-generator"
}

type fakeNormalizer struct {
	err error
}

func (f fakeNormalizer) Normalize(ctx context.Context, query string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return query, nil
}

func testRecord(i int) assessment.Record {
	return assessment.Record{
		Name:        fmt.Sprintf("Assessment %d", i),
		URL:         fmt.Sprintf("https://example.com/a/%d", i),
		Description: fmt.Sprintf("Measures skill %d", i),
		Category:    assessment.CategoryKnowledgeSkills,
		Length:      fmt.Sprintf("%d minutes", 10+i),
	}
}

// testCandidates returns n candidates in retrieval order.
func testCandidates(n int) assessment.Candidates {
	candidates := make(assessment.Candidates, n)
	for i := range candidates {
		candidates[i] = assessment.Candidate{
			Record:   testRecord(i),
			Distance: float32(i),
			Position: i,
		}
	}
	return candidates
}

// testCorpus places record i at distance i from the zero vector, so a zero
// query retrieves records in corpus order.
func testCorpus(records []assessment.Record) *corpus.Corpus {
	vectors := make([][]float32, len(records))
	for i := range vectors {
		vectors[i] = []float32{float32(i), 0}
	}
	c, err := corpus.New(records, vectors, "fake-embedder")
	if err != nil {
		panic(err)
	}
	return c
}

func generatedJSON(candidates assessment.Candidates) string {
	items := "["
	for i, c := range candidates {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"assessment_name":%q,"assessment_url":%q,"description":"generated %d","why_great_fit":"fits %d","assessment_length":"%d min"}`,
			c.Name, c.URL, i, i, i)
	}
	return items + "]"
}
