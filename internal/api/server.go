package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/collectiq-ai/collectiq/internal/analysis"
	"github.com/collectiq-ai/collectiq/internal/openrouter"
	"github.com/collectiq-ai/collectiq/internal/pipeline"
	"github.com/collectiq-ai/collectiq/internal/store"
)

// Analyzer runs the analysis pipeline for one call.
type Analyzer interface {
	Analyze(ctx context.Context, callID string, opts pipeline.Options) (*analysis.Result, error)
}

// CallReader is the read side the API serves.
type CallReader interface {
	ListCalls(ctx context.Context) ([]store.Call, error)
	GetCall(ctx context.Context, id string) (store.Call, error)
	GetAnalysis(ctx context.Context, callID string) (*analysis.Result, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	analyzer Analyzer
	calls    CallReader
	logger   *slog.Logger
}

func NewServer(port int, analyzer Analyzer, calls CallReader, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		analyzer: analyzer,
		calls:    calls,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/models", s.models)
	router.Get("/api/v1/calls", s.listCalls)
	router.Post("/api/v1/calls/{id}/analyze", s.analyze)
	router.Get("/api/v1/calls/{id}", s.getCall)
	router.Handle("/metrics", promhttp.Handler())

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  openrouter.Available,
		"default": openrouter.DefaultModel,
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "id")

	var body struct {
		Model string `json:"model"`
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if body.Model != "" && !openrouter.IsKnown(body.Model) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown model %q", body.Model))
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), callID, pipeline.Options{Model: body.Model})
	if err != nil {
		if errors.Is(err, pipeline.ErrNoSegments) {
			writeError(w, http.StatusUnprocessableEntity, "call has no transcript segments")
			return
		}
		s.logger.Error("analysis request failed", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := s.calls.ListCalls(r.Context())
	if err != nil {
		s.logger.Error("list calls failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list calls failed")
		return
	}
	if calls == nil {
		calls = []store.Call{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": calls})
}

func (s *Server) getCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "id")

	call, err := s.calls.GetCall(r.Context(), callID)
	if err != nil {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}

	// A call without an analysis is not an error, the analysis field is null.
	result, err := s.calls.GetAnalysis(r.Context(), callID)
	if err != nil {
		result = nil
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"call":     call,
		"analysis": result,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
