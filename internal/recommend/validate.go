package recommend

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

const (
	MinRecommendations = 5
	MaxRecommendations = 10

	defaultWhyGreatFit = "This assessment is recommended based on your query requirements."
	defaultLength      = "Not specified"
)

const fence = "```"

// generatedItem is one element of the generator's JSON array. The alternate
// keys are spellings models produce when they echo the candidate list.
type generatedItem struct {
	Name           string `mapstructure:"assessment_name"`
	URL            string `mapstructure:"assessment_url"`
	AltURL         string `mapstructure:"url"`
	Description    string `mapstructure:"description"`
	AltDescription string `mapstructure:"assessment_description"`
	WhyGreatFit    string `mapstructure:"why_great_fit"`
	Length         string `mapstructure:"assessment_length"`
	AltLength      string `mapstructure:"length"`
}

// Validate turns raw generator output into between MinRecommendations and
// MaxRecommendations recommendations. Items without a name or url are
// dropped, missing optional fields are filled from the matching candidate,
// short lists are padded with unused candidates in retrieval order and long
// lists keep the generator's first MaxRecommendations items.
//
// A *ParseError is returned when the output is not a JSON array. An array
// without usable items is padded from the candidates like any short list.
func Validate(raw string, candidates assessment.Candidates) ([]assessment.Recommendation, error) {
	payload := stripFence(raw)
	if payload == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	var parsed any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}

	elements, ok := parsed.([]any)
	if !ok {
		return nil, &ParseError{Reason: "response is not a json array"}
	}

	recs := make([]assessment.Recommendation, 0, len(elements))
	seen := make(map[string]struct{}, len(elements))

	for _, element := range elements {
		item, ok := decodeItem(element)
		if !ok {
			continue
		}
		if _, dup := seen[item.URL]; dup {
			continue
		}
		seen[item.URL] = struct{}{}
		recs = append(recs, backfill(item, candidates))
	}

	return enforceBounds(recs, candidates), nil
}

// stripFence returns the content of the first markdown code fence, or the
// trimmed input when there is none. An unterminated fence runs to the end.
func stripFence(raw string) string {
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, fence)
	if start == -1 {
		return raw
	}

	body := raw[start+len(fence):]
	// Skip the info string, e.g. "json".
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		body = body[nl+1:]
	} else if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}

	if end := strings.Index(body, fence); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func decodeItem(element any) (generatedItem, bool) {
	fields, ok := element.(map[string]any)
	if !ok {
		return generatedItem{}, false
	}

	var item generatedItem
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &item,
	})
	if err != nil {
		return generatedItem{}, false
	}
	if err := decoder.Decode(fields); err != nil {
		return generatedItem{}, false
	}

	item.Name = strings.TrimSpace(item.Name)
	item.URL = firstNonBlank(item.URL, item.AltURL)
	item.Description = firstNonBlank(item.Description, item.AltDescription)
	item.WhyGreatFit = strings.TrimSpace(item.WhyGreatFit)
	item.Length = firstNonBlank(item.Length, item.AltLength)

	if item.Name == "" || item.URL == "" {
		return generatedItem{}, false
	}
	return item, true
}

func backfill(item generatedItem, candidates assessment.Candidates) assessment.Recommendation {
	rec := assessment.Recommendation{
		Name:        item.Name,
		URL:         item.URL,
		Description: item.Description,
		WhyGreatFit: item.WhyGreatFit,
		Length:      item.Length,
	}

	match := candidates.FindByURL(item.URL)

	if rec.Description == "" && match != nil {
		rec.Description = strings.TrimSpace(match.Description)
	}
	if rec.WhyGreatFit == "" {
		rec.WhyGreatFit = defaultWhyGreatFit
	}
	if rec.Length == "" && match != nil {
		rec.Length = strings.TrimSpace(match.Length)
	}
	if rec.Length == "" {
		rec.Length = defaultLength
	}
	return rec
}

// enforceBounds pads recs from unused candidates up to MinRecommendations and
// truncates to MaxRecommendations.
func enforceBounds(recs []assessment.Recommendation, candidates assessment.Candidates) []assessment.Recommendation {
	if len(recs) < MinRecommendations {
		used := make(map[string]struct{}, len(recs))
		for _, rec := range recs {
			used[rec.URL] = struct{}{}
		}

		for _, c := range candidates {
			if len(recs) >= MinRecommendations {
				break
			}
			url := strings.TrimSpace(c.URL)
			if url == "" || strings.TrimSpace(c.Name) == "" {
				continue
			}
			if _, ok := used[url]; ok {
				continue
			}
			used[url] = struct{}{}
			recs = append(recs, fromCandidate(c))
		}
	}

	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
