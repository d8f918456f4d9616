// Package server exposes the recommendation pipeline over HTTP: a JSON API
// and a minimal HTML form.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/assessment-recommender/internal/recommend"
)

const (
	serviceName = "assessment-recommender"

	healthPath    = "/health"
	recommendPath = "/recommend"

	defaultListen          = "127.0.0.1:8000"
	defaultShutdownTimeout = 10 * time.Second
	defaultCORSOrigin      = "*"
	maxRequestBytes        = 1 << 20
)

// Recommender runs the pipeline for one query.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*recommend.Result, error)
}

type Options struct {
	Listen string
	// RateLimit is the allowed requests per second. Zero disables limiting.
	RateLimit       float64
	Burst           int
	CORSOrigin      string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	// WriteTimeout has to cover URL fetching, embedding and generation.
	WriteTimeout time.Duration
}

type Server struct {
	recommender     Recommender
	opts            Options
	shutdownTimeout time.Duration
	logger          *zap.Logger
	handler         http.Handler
}

func New(recommender Recommender, opts Options, logger *zap.Logger) (*Server, error) {
	if recommender == nil {
		return nil, errors.New("recommender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Listen == "" {
		opts.Listen = defaultListen
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = defaultCORSOrigin
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Minute
	}
	if opts.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must not be negative, got %v", opts.RateLimit)
	}

	s := &Server{
		recommender:     recommender,
		opts:            opts,
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          logger,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+healthPath, s.handleHealth)
	mux.HandleFunc("POST "+recommendPath, s.handleRecommend)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleForm)

	middlewares := []Middleware{
		Recover(s.logger),
		RequestID(),
		Logger(s.logger),
		CORS(s.opts.CORSOrigin),
	}
	if s.opts.RateLimit > 0 {
		burst := s.opts.Burst
		if burst <= 0 {
			burst = max(1, int(s.opts.RateLimit))
		}
		middlewares = append(middlewares, RateLimit(rate.NewLimiter(rate.Limit(s.opts.RateLimit), burst)))
	}
	middlewares = append(middlewares, OTel(serviceName))

	return Chain(mux, middlewares...)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("listen", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
