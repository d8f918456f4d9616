package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

// column aliases accepted in the catalog CSV header, matched case-insensitively.
var columnAliases = map[string]string{
	"assessment_name":        "name",
	"name":                   "name",
	"assessment_url":         "url",
	"url":                    "url",
	"assessment_description": "description",
	"description":            "description",
	"assessment_type":        "category",
	"category":               "category",
	"job_levels":             "job_levels",
	"languages":              "languages",
	"assessment_length":      "length",
	"length":                 "length",
}

// ReadCSV reads catalog records from the scraper CSV. Rows without a name or
// url are skipped.
func ReadCSV(r io.Reader) ([]assessment.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := columnAliases[key]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}

	for _, required := range []string{"name", "url"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("catalog csv has no %s column", required)
		}
	}

	var records []assessment.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := assessment.Record{
			Name:        get("name"),
			URL:         get("url"),
			Description: get("description"),
			Category:    get("category"),
			JobLevels:   get("job_levels"),
			Languages:   get("languages"),
			Length:      get("length"),
		}
		if rec.Name == "" || rec.URL == "" {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}
