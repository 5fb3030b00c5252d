// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the discovery pipeline over HTTP. Every request
// is an isolated run: nothing is shared between requests except the
// optional ledger.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pdiddy/smart-discovery/internal/analyze"
	"github.com/pdiddy/smart-discovery/internal/ledger"
	"github.com/pdiddy/smart-discovery/internal/pipeline"
	"github.com/pdiddy/smart-discovery/internal/source"
	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/internal/validate"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

const (
	defaultAddr           = ":8080"
	defaultRequestTimeout = 5 * time.Minute
	defaultCustomer       = "Customer"
	maxBodyBytes          = 5 << 20
)

// Config holds the server's collaborators.
type Config struct {
	Settings types.PipelineConfig

	// Drafter overrides the drafter chosen from Settings.AI.
	Drafter analyze.Drafter

	// Ledger, when set, records every run and enables the evidence routes.
	Ledger *ledger.Store

	Logger *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	log    *slog.Logger
	router *chi.Mux
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, log: log}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	timeout := s.cfg.Settings.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	if origins := s.cfg.Settings.Server.AllowedOrigins; len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/discover", s.handleDiscover)
		if s.cfg.Ledger != nil {
			r.Get("/runs", s.handleRuns)
			r.Get("/evidence", s.handleSearch)
			r.Get("/evidence/{id}", s.handleTrace)
		}
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Settings.Server.Addr
	if addr == "" {
		addr = defaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// DiscoverRequest is the body of POST /api/discover.
type DiscoverRequest struct {
	Content                string `json:"content"`
	CustomerConfigMarkdown string `json:"customer_config_markdown,omitempty"`
	Customer               string `json:"customer,omitempty"`
}

// ValidationStats summarises grounding of the returned report.
type ValidationStats struct {
	Valid                 bool     `json:"valid"`
	TotalBullets          int      `json:"total_bullets"`
	GroundedBullets       int      `json:"grounded_bullets"`
	Coverage              float64  `json:"coverage"`
	SectionsWithQuestions int      `json:"sections_with_questions"`
	MissingSections       []string `json:"missing_sections,omitempty"`
}

// DiscoverResponse is the body returned by POST /api/discover.
type DiscoverResponse struct {
	RunID      string          `json:"run_id"`
	Title      string          `json:"title"`
	Customer   string          `json:"customer"`
	Summary    string          `json:"summary,omitempty"`
	Sections   []types.Section `json:"sections"`
	Evidence   int             `json:"evidence"`
	Slides     int             `json:"slides"`
	Validation ValidationStats `json:"validation"`
	Warnings   []string        `json:"warnings,omitempty"`
	Markdown   string          `json:"markdown"`
}

type errorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "content is required"})
		return
	}

	name := strings.TrimSpace(req.Customer)
	if name == "" {
		name = defaultCustomer
	}
	cfg := types.CustomerConfig{Name: name}
	var warnings []string
	if strings.TrimSpace(req.CustomerConfigMarkdown) != "" {
		cfg, warnings = template.ParseConfigMarkdown(req.CustomerConfigMarkdown, name)
		if req.Customer != "" {
			cfg.Name = name
		}
	}

	settings := s.cfg.Settings
	settings.Output.Dir = ""

	res, err := pipeline.Run(r.Context(), pipeline.Input{Config: cfg, Content: req.Content}, pipeline.Options{
		Settings: settings,
		Drafter:  s.cfg.Drafter,
		Ledger:   s.cfg.Ledger,
		Logger:   s.log.With("request_id", middleware.GetReqID(r.Context())),
	})
	if err != nil {
		resp := errorResponse{Error: err.Error()}
		if res != nil {
			resp.RunID = res.RunID
		}
		writeJSON(w, statusFor(err), resp)
		return
	}

	report := res.Report
	writeJSON(w, http.StatusOK, DiscoverResponse{
		RunID:    res.RunID,
		Title:    report.Title,
		Customer: report.Customer,
		Summary:  report.Summary,
		Sections: report.Sections,
		Evidence: report.Evidence.Len(),
		Slides:   res.Plan.Total,
		Validation: ValidationStats{
			Valid:                 res.Validation.Valid,
			TotalBullets:          res.Validation.TotalBullets,
			GroundedBullets:       res.Validation.GroundedBullets,
			Coverage:              res.Validation.Coverage(),
			SectionsWithQuestions: res.Validation.SectionsWithQuestions,
			MissingSections:       res.Validation.MissingSections,
		},
		Warnings: append(warnings, res.Warnings...),
		Markdown: res.Markdown,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.cfg.Ledger.Runs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query parameter q is required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits, err := s.cfg.Ledger.Search(r.Context(), q, limit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace, err := s.cfg.Ledger.Trace(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if !trace.Found() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "evidence " + id + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, template.ErrInvalidConfig), errors.Is(err, pipeline.ErrNoInput):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrNoContent), errors.Is(err, validate.ErrUngrounded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLogger logs one structured line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
