package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

func testRecords(n int) []assessment.Record {
	records := make([]assessment.Record, n)
	for i := range records {
		records[i] = assessment.Record{
			Name:     fmt.Sprintf("Assessment %d", i),
			URL:      fmt.Sprintf("https://example.com/a/%d", i),
			Category: assessment.CategoryKnowledgeSkills,
		}
	}
	return records
}

func testVectors(n, dim int) [][]float32 {
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		v[0] = float32(i)
		vectors[i] = v
	}
	return vectors
}

func TestNewRejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := New(testRecords(3), testVectors(2, 4), "model")

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected corpus error, got %v", err)
	}
}

func TestNewRejectsRaggedVectors(t *testing.T) {
	t.Parallel()

	vectors := testVectors(2, 4)
	vectors[1] = vectors[1][:3]

	var cerr *Error
	if _, err := New(testRecords(2), vectors, "model"); !errors.As(err, &cerr) {
		t.Fatalf("expected corpus error, got %v", err)
	}
}

func TestLoadDetectsCountMismatch(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(artifact{
		Version:   FormatVersion,
		Dimension: 4,
		Records:   testRecords(99),
		Vectors:   testVectors(100, 4),
	})
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}

	path := filepath.Join(t.TempDir(), "corpus.json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	_, err = Load(path)

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected corpus error, got %v", err)
	}
	if cerr.Path != path {
		t.Fatalf("expected error to carry the path, got %q", cerr.Path)
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected corpus error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	t.Parallel()

	var cerr *Error
	if _, err := Decode(bytes.NewBufferString(`{"version": 7}`)); !errors.As(err, &cerr) {
		t.Fatalf("expected corpus error, got %v", err)
	}
}

func TestSaveAndLoadCompressed(t *testing.T) {
	t.Parallel()

	c, err := New(testRecords(3), testVectors(3, 2), "test-model")
	if err != nil {
		t.Fatalf("new corpus: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nested", "corpus.json.gz")
	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != 3 || loaded.Dimension() != 2 || loaded.Model() != "test-model" {
		t.Fatalf("unexpected corpus: len=%d dim=%d model=%s", loaded.Len(), loaded.Dimension(), loaded.Model())
	}
	rec, ok := loaded.Record(2)
	if !ok || rec.URL != "https://example.com/a/2" {
		t.Fatalf("unexpected record at slot 2: %+v", rec)
	}
}

func TestSearchOrdersByDistanceWithStableTies(t *testing.T) {
	t.Parallel()

	vectors := [][]float32{
		{3, 0}, // 0: distance 9
		{1, 0}, // 1: distance 1
		{0, 1}, // 2: distance 1, tie with 1
		{0, 0}, // 3: distance 0
		{2, 0}, // 4: distance 4
	}
	c, err := New(testRecords(5), vectors, "model")
	if err != nil {
		t.Fatalf("new corpus: %v", err)
	}

	hits, err := c.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int{3, 1, 2, 4}
	if len(hits) != len(expected) {
		t.Fatalf("expected %d hits, got %d", len(expected), len(hits))
	}
	for i, pos := range expected {
		if hits[i].Position != pos {
			t.Fatalf("hit %d: expected slot %d, got %d", i, pos, hits[i].Position)
		}
		if hits[i].URL != fmt.Sprintf("https://example.com/a/%d", pos) {
			t.Fatalf("hit %d: record does not match slot", i)
		}
	}
}

func TestSearchReturnsWholeSmallCorpus(t *testing.T) {
	t.Parallel()

	c, err := New(testRecords(3), testVectors(3, 2), "model")
	if err != nil {
		t.Fatalf("new corpus: %v", err)
	}

	hits, err := c.Search([]float32{0, 0}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	t.Parallel()

	c, err := New(testRecords(1), testVectors(1, 2), "model")
	if err != nil {
		t.Fatalf("new corpus: %v", err)
	}

	if _, err := c.Search([]float32{1, 2, 3}, 1); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	t.Parallel()

	c, err := New(nil, nil, "model")
	if err != nil {
		t.Fatalf("new corpus: %v", err)
	}

	hits, err := c.Search([]float32{1}, 5)
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected no hits and no error, got %d hits, err %v", len(hits), err)
	}
}
