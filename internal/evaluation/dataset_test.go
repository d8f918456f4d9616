package evaluation

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadLabeledGroupsByQuery(t *testing.T) {
	t.Parallel()

	input := "\ufeffQuery,Assessment_url\n" +
		"java dev,https://example.com/a\n" +
		"analyst,https://example.com/b\n" +
		"java dev,https://example.com/c\n" +
		"java dev,https://example.com/a\n" +
		",https://example.com/d\n"

	labeled, err := ReadLabeled(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(labeled) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(labeled))
	}
	if labeled[0].Query != "java dev" || strings.Join(labeled[0].Relevant, ",") != "https://example.com/a,https://example.com/c" {
		t.Fatalf("unexpected first group: %+v", labeled[0])
	}
	if labeled[1].Query != "analyst" || len(labeled[1].Relevant) != 1 {
		t.Fatalf("unexpected second group: %+v", labeled[1])
	}
}

func TestReadLabeledMatchesColumnsLoosely(t *testing.T) {
	t.Parallel()

	input := "id,Assessment URL,User Query\n1,https://example.com/a,need sql\n"

	labeled, err := ReadLabeled(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labeled) != 1 || labeled[0].Query != "need sql" || labeled[0].Relevant[0] != "https://example.com/a" {
		t.Fatalf("unexpected result: %+v", labeled)
	}
}

func TestReadLabeledMissingColumns(t *testing.T) {
	t.Parallel()

	if _, err := ReadLabeled(strings.NewReader("Query,Other\nq,x\n")); err == nil {
		t.Fatalf("expected error for missing url column")
	}
	if _, err := ReadLabeled(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestReadQueries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{name: "exact column", input: "Query Notes,Query\nignored,first\nignored,  second \n", expect: []string{"first", "second"}},
		{name: "loose column", input: "job query\nonly one\n\n", expect: []string{"only one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadQueries(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.expect, "|") {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}

	if _, err := ReadQueries(strings.NewReader("text\nhello\n")); err == nil {
		t.Fatalf("expected error without a query column")
	}
}

func TestWritePredictions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WritePredictions(&buf, []Prediction{
		{Query: "java, senior", URL: "https://example.com/a"},
		{Query: "broken", URL: ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "Query,Assessment_url\n\"java, senior\",https://example.com/a\nbroken,\n"
	if buf.String() != expected {
		t.Fatalf("expected %q, got %q", expected, buf.String())
	}
}

func TestReportWriteCSV(t *testing.T) {
	t.Parallel()

	report := &Report{
		K: 10,
		Results: []QueryResult{
			{Query: "java", RelevantCount: 2, RecommendedCount: 5, RelevantFound: 1, Recall: 0.5},
		},
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "Query,Relevant_Count,Recommended_Count,Relevant_Found,Recall@10\njava,2,5,1,0.5000\n"
	if buf.String() != expected {
		t.Fatalf("expected %q, got %q", expected, buf.String())
	}
}
