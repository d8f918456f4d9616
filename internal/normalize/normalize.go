// Package normalize turns a user query into plain text. Literal text passes
// through trimmed; URLs are fetched and reduced to their readable content.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 5 << 20
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var urlPrefixes = []string{"http://", "https://", "www."}

// FetchError reports a URL query that could not be turned into text.
type FetchError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Reason)
}

// Detail describes the failure by url and reason only, leaving out the
// underlying transport error.
func (e *FetchError) Detail() string {
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures URL fetching.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

type Normalizer struct {
	HTTPClient   *http.Client
	UserAgent    string
	timeout      time.Duration
	maxBodyBytes int64
	logger       *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &Normalizer{
		HTTPClient:   &http.Client{Timeout: timeout},
		UserAgent:    userAgent,
		timeout:      timeout,
		maxBodyBytes: maxBody,
		logger:       logger,
	}
}

// IsURL reports whether the trimmed query starts with a URL scheme or "www.".
// The match is case-sensitive.
func IsURL(query string) bool {
	query = strings.TrimSpace(query)
	for _, prefix := range urlPrefixes {
		if strings.HasPrefix(query, prefix) {
			return true
		}
	}
	return false
}

// Normalize returns the query as plain text. Literal text is only trimmed, so
// normalizing twice is a no-op. URL queries fail with *FetchError rather than
// degrading to the URL string itself.
func (n *Normalizer) Normalize(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if !IsURL(query) {
		return query, nil
	}

	n.logger.Info("detected url query, extracting content", zap.String("url", query))

	text, err := n.fetchText(ctx, query)
	if err != nil {
		return "", err
	}

	n.logger.Info("extracted text from url",
		zap.String("url", query),
		zap.Int("characters", len([]rune(text))),
	)
	return text, nil
}

func (n *Normalizer) fetchText(ctx context.Context, rawURL string) (string, error) {
	target := rawURL
	if strings.HasPrefix(target, "www.") {
		target = "https://" + target
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return "", &FetchError{URL: rawURL, Reason: "invalid url", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Reason: "build request", Err: err}
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	n.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		reason := "request failed"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			reason = "timeout"
		}
		return "", &FetchError{URL: rawURL, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: rawURL, Reason: fmt.Sprintf("bad status: %s", resp.Status)}
	}

	body := io.LimitReader(resp.Body, n.maxBodyBytes)
	text, err := ExtractText(body)
	if err != nil {
		return "", &FetchError{URL: rawURL, Reason: "parse document", Err: err}
	}

	if text == "" {
		return "", &FetchError{URL: rawURL, Reason: "no readable text in document"}
	}

	return text, nil
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
