package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/corpus"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/normalize"
	"github.com/spigell/assessment-recommender/internal/recommend"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(indexHTML))

type recommendRequest struct {
	Query string `json:"query"`
}

type recommendResponse struct {
	Query           string                      `json:"query"`
	Recommendations []assessment.Recommendation `json:"recommendations"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type indexPage struct {
	Query           string
	Error           string
	Recommendations []assessment.Recommendation
	Submitted       bool
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.recommender.Recommend(r.Context(), req.Query)
	if err != nil {
		status, detail := s.classify(r.Context(), err)
		writeError(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, recommendResponse{
		Query:           result.Query,
		Recommendations: result.Recommendations,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderIndex(w, http.StatusOK, indexPage{})
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseForm(); err != nil {
		s.renderIndex(w, http.StatusBadRequest, indexPage{Submitted: true, Error: "invalid form"})
		return
	}

	page := indexPage{Query: r.PostFormValue("query"), Submitted: true}

	result, err := s.recommender.Recommend(r.Context(), page.Query)
	if err != nil {
		status, detail := s.classify(r.Context(), err)
		page.Error = detail
		s.renderIndex(w, status, page)
		return
	}

	page.Recommendations = result.Recommendations
	s.renderIndex(w, http.StatusOK, page)
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, page indexPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, page); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}

// classify maps pipeline errors to a status code and a client-facing detail.
func (s *Server) classify(ctx context.Context, err error) (int, string) {
	log := logger.WithRequestID(s.logger, RequestIDFromContext(ctx))

	var (
		fetchErr  *normalize.FetchError
		corpusErr *corpus.Error
		embedErr  *ai.EmbeddingError
	)

	switch {
	case errors.Is(err, recommend.ErrEmptyQuery):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &fetchErr):
		log.Info("query url could not be processed", zap.Error(err))
		return http.StatusUnprocessableEntity, fetchErr.Detail()
	case errors.As(err, &corpusErr):
		log.Error("corpus unavailable", zap.Error(err))
		return http.StatusServiceUnavailable, "assessment corpus is unavailable"
	case errors.As(err, &embedErr):
		log.Error("embedding provider failed", zap.Error(err))
		return http.StatusBadGateway, "embedding provider is unavailable"
	default:
		log.Error("recommendation failed", zap.Error(err))
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
