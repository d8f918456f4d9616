package recommend

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned for empty or whitespace-only queries.
var ErrEmptyQuery = errors.New("query must not be empty")

// ParseError reports generator output that could not be turned into
// recommendations. The engine recovers from it with the fallback list.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse generator output: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse generator output: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
