// Package assessment holds the catalog record, retrieval candidate and
// recommendation types shared by the corpus, the pipeline and the transports.
package assessment

import (
	"fmt"
	"strings"
)

const (
	CategoryKnowledgeSkills     = "Knowledge & Skills"
	CategoryPersonalityBehavior = "Personality & Behavior"
	CategorySituationalJudgment = "Situational Judgment"
	CategoryGeneral             = "General"
)

// Record is one catalog entry. Optional attributes are empty when absent.
type Record struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Category    string `json:"category"`
	JobLevels   string `json:"job_levels,omitempty"`
	Languages   string `json:"languages,omitempty"`
	Length      string `json:"length,omitempty"`
}

// Document renders the record the way it is embedded: one labeled line per
// field, optional fields only when present.
func (r Record) Document() string {
	lines := []string{
		"Name: " + r.Name,
		"Type: " + r.Category,
		"Description: " + r.Description,
	}
	lines = appendOptional(lines, "Job Levels", r.JobLevels)
	lines = appendOptional(lines, "Languages", r.Languages)
	lines = appendOptional(lines, "Assessment Length", r.Length)
	return strings.Join(lines, "\n")
}

func appendOptional(lines []string, label, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return lines
	}
	return append(lines, fmt.Sprintf("%s: %s", label, value))
}

// Candidate is a record retrieved for one request together with its distance
// to the query vector. Position is the record's slot in the corpus.
type Candidate struct {
	Record
	Distance float32
	Position int
}

// Candidates is an ordered retrieval result, nearest first.
type Candidates []Candidate

func (c Candidates) Len() int {
	return len(c)
}

// FindByURL returns the first candidate with the given url, or nil.
func (c Candidates) FindByURL(url string) *Candidate {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	for i := range c {
		if strings.TrimSpace(c[i].URL) == url {
			return &c[i]
		}
	}
	return nil
}

// Recommendation is the externally visible unit. Every field is always set.
type Recommendation struct {
	Name        string `json:"assessment_name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	WhyGreatFit string `json:"why_great_fit"`
	Length      string `json:"assessment_length"`
}

// URLs returns the urls of the recommendations in order.
func URLs(recs []Recommendation) []string {
	urls := make([]string, 0, len(recs))
	for _, rec := range recs {
		urls = append(urls, rec.URL)
	}
	return urls
}
