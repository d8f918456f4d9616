package recommend

import (
	"fmt"
	"strings"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

// Fallback builds recommendations straight from the leading candidates, for
// use when generation or parsing failed. It never fails and returns between
// MinRecommendations and MaxRecommendations items unless fewer candidates
// were retrieved, in which case it returns all of them.
func Fallback(candidates assessment.Candidates) []assessment.Recommendation {
	n := min(max(MinRecommendations, len(candidates)), MaxRecommendations)
	n = min(n, len(candidates))

	recs := make([]assessment.Recommendation, 0, n)
	for _, c := range candidates[:n] {
		recs = append(recs, fromCandidate(c))
	}
	return recs
}

func fromCandidate(c assessment.Candidate) assessment.Recommendation {
	category := strings.TrimSpace(c.Category)
	if category == "" {
		category = "relevant skills"
	}

	length := strings.TrimSpace(c.Length)
	if length == "" {
		length = defaultLength
	}

	return assessment.Recommendation{
		Name:        strings.TrimSpace(c.Name),
		URL:         strings.TrimSpace(c.URL),
		Description: strings.TrimSpace(c.Description),
		WhyGreatFit: fmt.Sprintf("%s It measures %s that align with your hiring needs.", defaultWhyGreatFit, category),
		Length:      length,
	}
}
