package corpus

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

type artifact struct {
	Version        int                 `json:"version"`
	EmbeddingModel string              `json:"embedding_model"`
	Dimension      int                 `json:"dimension"`
	BuiltAt        time.Time           `json:"built_at"`
	Records        []assessment.Record `json:"records"`
	Vectors        [][]float32         `json:"vectors"`
}

// Load reads a corpus artifact written by Save. Paths ending in .gz are
// gzip-compressed. Any absence or inconsistency is reported as *Error.
func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Path: path, Reason: "artifact not found, build the corpus first", Err: err}
		}
		return nil, &Error{Path: path, Reason: "open artifact", Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if isGzip(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, &Error{Path: path, Reason: "open gzip stream", Err: err}
		}
		defer gz.Close()
		r = gz
	}

	c, err := Decode(r)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
			return nil, cerr
		}
		return nil, &Error{Path: path, Reason: "decode artifact", Err: err}
	}

	return c, nil
}

// Decode reads an artifact from r and validates it.
func Decode(r io.Reader) (*Corpus, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, &Error{Reason: "decode artifact", Err: err}
	}

	if a.Version != FormatVersion {
		return nil, &Error{Reason: fmt.Sprintf("unsupported artifact version %d, expected %d", a.Version, FormatVersion)}
	}

	c := &Corpus{
		model:     a.EmbeddingModel,
		dimension: a.Dimension,
		builtAt:   a.BuiltAt,
		records:   a.Records,
		vectors:   a.Vectors,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Encode writes the corpus as a single JSON artifact.
func (c *Corpus) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(artifact{
		Version:        FormatVersion,
		EmbeddingModel: c.model,
		Dimension:      c.dimension,
		BuiltAt:        c.builtAt,
		Records:        c.records,
		Vectors:        c.vectors,
	})
}

// Save atomically replaces path with the encoded corpus.
func (c *Corpus) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create corpus directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*")
	if err != nil {
		return fmt.Errorf("create temporary corpus file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.write(tmp, isGzip(path)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary corpus file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace corpus file: %w", err)
	}
	return nil
}

func (c *Corpus) write(w io.Writer, compress bool) error {
	if !compress {
		if err := c.Encode(w); err != nil {
			return fmt.Errorf("encode corpus: %w", err)
		}
		return nil
	}

	gz := gzip.NewWriter(w)
	if err := c.Encode(gz); err != nil {
		gz.Close()
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush gzip stream: %w", err)
	}
	return nil
}

func isGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}
