// Package corpus holds the immutable assessment catalog together with its
// embeddings. Records and vectors are one value: they are built, persisted and
// loaded together and always share length and order.
package corpus

import (
	"fmt"
	"slices"
	"time"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

// FormatVersion is the artifact version written by Save and accepted by Load.
const FormatVersion = 1

// Error reports a missing or inconsistent corpus. It is not recoverable at
// runtime; the corpus has to be rebuilt.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "corpus"
	if e.Path != "" {
		msg += fmt.Sprintf(" %q", e.Path)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Corpus is read-only after construction and safe for concurrent use.
type Corpus struct {
	model     string
	dimension int
	builtAt   time.Time
	records   []assessment.Record
	vectors   [][]float32
}

// New validates and wraps records and their vectors. Slot i of vectors is the
// embedding of records[i].
func New(records []assessment.Record, vectors [][]float32, model string) (*Corpus, error) {
	c := &Corpus{
		model:   model,
		builtAt: time.Now().UTC(),
		records: slices.Clone(records),
		vectors: make([][]float32, len(vectors)),
	}
	for i, v := range vectors {
		c.vectors[i] = slices.Clone(v)
	}

	if len(vectors) > 0 {
		c.dimension = len(vectors[0])
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Corpus) validate() error {
	if len(c.vectors) != len(c.records) {
		return &Error{Reason: fmt.Sprintf("vector count %d does not match record count %d", len(c.vectors), len(c.records))}
	}
	if len(c.vectors) > 0 && c.dimension <= 0 {
		return &Error{Reason: "embedding dimension must be positive"}
	}
	for i, v := range c.vectors {
		if len(v) != c.dimension {
			return &Error{Reason: fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v), c.dimension)}
		}
	}
	return nil
}

func (c *Corpus) Len() int {
	return len(c.records)
}

func (c *Corpus) Dimension() int {
	return c.dimension
}

// Model is the embedding model the vectors were produced with.
func (c *Corpus) Model() string {
	return c.model
}

func (c *Corpus) BuiltAt() time.Time {
	return c.builtAt
}

// Record returns the record stored at slot i.
func (c *Corpus) Record(i int) (assessment.Record, bool) {
	if i < 0 || i >= len(c.records) {
		return assessment.Record{}, false
	}
	return c.records[i], true
}

// Search returns up to k records closest to query by squared euclidean
// distance, nearest first. Equal distances keep corpus order.
func (c *Corpus) Search(query []float32, k int) (assessment.Candidates, error) {
	if k <= 0 || len(c.vectors) == 0 {
		return assessment.Candidates{}, nil
	}
	if len(query) != c.dimension {
		return nil, fmt.Errorf("query dimension %d does not match corpus dimension %d", len(query), c.dimension)
	}

	hits := make(assessment.Candidates, len(c.vectors))
	for i, v := range c.vectors {
		hits[i] = assessment.Candidate{
			Record:   c.records[i],
			Distance: squaredL2(query, v),
			Position: i,
		}
	}

	slices.SortStableFunc(hits, func(a, b assessment.Candidate) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
