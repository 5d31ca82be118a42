// Package api exposes the aggregation engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"positionScope/internal/engine"
	"positionScope/internal/metrics"
	"positionScope/internal/model"
)

const maxBodyBytes = 1 << 20

// Engine is the subset of *engine.Engine served over HTTP.
type Engine interface {
	Aggregate(ctx context.Context, token string) ([]model.PoolPositions, error)
	SummarizePools(ctx context.Context, token string) ([]model.PoolSummary, error)
	ResolvePosition(ctx context.Context, positionID string) (model.PositionDetail, error)
}

// Server serves analyze, pool summary and position lookups.
type Server struct {
	engine  Engine
	timeout time.Duration
	logger  *zap.Logger
}

type analyzeRequest struct {
	TokenAddress string `json:"tokenAddress"`
}

type analyzeResponse struct {
	Token string                `json:"token"`
	Pools []model.PoolPositions `json:"pools"`
}

type poolsResponse struct {
	Token string              `json:"token"`
	Pools []model.PoolSummary `json:"pools"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewServer creates a server. A positive timeout bounds each /api request so
// a slow upstream ends in a classified error instead of a dropped connection.
func NewServer(eng Engine, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: eng, timeout: timeout, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.deadline)
		r.Post("/analyze", s.analyze)
		r.Get("/pools", s.pools)
		r.Get("/positions/{positionID}", s.position)
	})
	return r
}

// analyze handles POST /api/analyze
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, engine.KindInvalidInput, "invalid request body")
		return
	}

	pools, err := s.engine.Aggregate(r.Context(), req.TokenAddress)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if pools == nil {
		pools = []model.PoolPositions{}
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Token: strings.TrimSpace(req.TokenAddress), Pools: pools})
}

// pools handles GET /api/pools?token=
func (s *Server) pools(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	pools, err := s.engine.SummarizePools(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poolsResponse{Token: strings.TrimSpace(token), Pools: pools})
}

// position handles GET /api/positions/{positionID}
func (s *Server) position(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.ResolvePosition(r.Context(), chi.URLParam(r, "positionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := engine.Kind(err)
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.String("kind", kind), zap.Error(err))
	}
	writeError(w, status, kind, err.Error())
}

// StatusFor maps an engine error onto an HTTP status.
func StatusFor(err error) int {
	switch engine.Kind(err) {
	case engine.KindInvalidInput:
		return http.StatusBadRequest
	case engine.KindNoPoolsFound, engine.KindPositionLookupFailed:
		return http.StatusNotFound
	case engine.KindUpstreamUnavailable, engine.KindUpstreamMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) deadline(next http.Handler) http.Handler {
	if s.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}
