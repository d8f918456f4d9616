package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Labeled is one query with the set of assessment urls judged relevant.
type Labeled struct {
	Query    string
	Relevant []string
}

// Prediction is one row of a predictions file.
type Prediction struct {
	Query string
	URL   string
}

// ReadLabeled reads a labeled set with one row per (query, relevant url)
// pair and groups it by query in order of first appearance.
func ReadLabeled(r io.Reader) ([]Labeled, error) {
	reader := newReader(r)

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	queryCol := findColumn(header, func(name string) bool { return strings.Contains(name, "query") })
	urlCol := findColumn(header, func(name string) bool {
		return strings.Contains(name, "assessment") && strings.Contains(name, "url")
	})
	if queryCol == -1 || urlCol == -1 {
		return nil, fmt.Errorf("labeled csv needs a query and an assessment url column, got %v", header)
	}

	var (
		labeled []Labeled
		index   = map[string]int{}
		seen    = map[string]map[string]struct{}{}
	)

	err = eachRow(reader, func(row []string) {
		query := cell(row, queryCol)
		url := cell(row, urlCol)
		if query == "" || url == "" {
			return
		}

		i, ok := index[query]
		if !ok {
			i = len(labeled)
			index[query] = i
			labeled = append(labeled, Labeled{Query: query})
			seen[query] = map[string]struct{}{}
		}
		if _, dup := seen[query][url]; dup {
			return
		}
		seen[query][url] = struct{}{}
		labeled[i].Relevant = append(labeled[i].Relevant, url)
	})
	if err != nil {
		return nil, err
	}

	return labeled, nil
}

// ReadQueries reads the query column of an unlabeled set. A column named
// exactly "Query" wins over any other column containing "query".
func ReadQueries(r io.Reader) ([]string, error) {
	reader := newReader(r)

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	col := findColumn(header, func(name string) bool { return name == "query" })
	if col == -1 {
		col = findColumn(header, func(name string) bool { return strings.Contains(name, "query") })
	}
	if col == -1 {
		return nil, fmt.Errorf("query column not found, available columns: %v", header)
	}

	var queries []string
	err = eachRow(reader, func(row []string) {
		if query := cell(row, col); query != "" {
			queries = append(queries, query)
		}
	})
	if err != nil {
		return nil, err
	}
	return queries, nil
}

// WritePredictions writes predictions as a Query,Assessment_url csv.
func WritePredictions(w io.Writer, predictions []Prediction) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Query", "Assessment_url"}); err != nil {
		return err
	}
	for _, p := range predictions {
		if err := writer.Write([]string{p.Query, p.URL}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSV writes the per-query results of a report.
func (r *Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	recallColumn := fmt.Sprintf("Recall@%d", r.K)
	if err := writer.Write([]string{"Query", "Relevant_Count", "Recommended_Count", "Relevant_Found", recallColumn}); err != nil {
		return err
	}

	for _, res := range r.Results {
		row := []string{
			res.Query,
			strconv.Itoa(res.RelevantCount),
			strconv.Itoa(res.RecommendedCount),
			strconv.Itoa(res.RelevantFound),
			strconv.FormatFloat(res.Recall, 'f', 4, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader
}

func readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	return header, nil
}

// findColumn returns the first column whose lower-cased name matches, or -1.
func findColumn(header []string, match func(string) bool) int {
	for i, name := range header {
		if match(strings.ToLower(name)) {
			return i
		}
	}
	return -1
}

func eachRow(reader *csv.Reader, fn func([]string)) error {
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv line %d: %w", line, err)
		}
		fn(row)
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
