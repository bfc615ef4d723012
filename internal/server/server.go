/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the HTTP surface over the search orchestrator.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi/internal/config"
	"github.com/friendsincode/bragi/internal/query"
	"github.com/friendsincode/bragi/internal/search"
	"github.com/friendsincode/bragi/internal/telemetry"
)

// Server bundles the HTTP router and its dependencies.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	search     *search.Service
	metrics    *telemetry.Metrics
	closers    []func() error
}

// New creates the server and mounts its routes.
func New(cfg *config.Config, svc *search.Service, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger.With().Str("component", "server").Logger(),
		search:  svc,
		metrics: metrics,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.requestLogger)

	router.Get("/healthz", s.handleHealth)
	if metrics != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	router.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/search/explain", s.handleExplain)
	})

	s.router = router
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// HTTPServer returns the configured http.Server for the caller to run.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// AddCloser registers a shutdown hook.
func (s *Server) AddCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close runs registered shutdown hooks.
func (s *Server) Close() error {
	var firstErr error
	for _, fn := range s.closers {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit parameter"})
			return
		}
		limit = parsed
	}

	resp, err := s.search.Search(r.Context(), search.Request{
		Query: q,
		Mode:  r.URL.Query().Get("mode"),
		Limit: limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// explainToken is the wire form of a parsed token.
type explainToken struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Field string `json:"field,omitempty"`
	Op    string `json:"op,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type explainResponse struct {
	Tokens       []explainToken `json:"tokens"`
	HasOperators bool           `json:"has_operators"`
	HasFields    bool           `json:"has_fields"`
	HasQuotes    bool           `json:"has_quotes"`
	HasGrouping  bool           `json:"has_grouping"`
	BaseQuery    string         `json:"base_query"`
	Errors       []string       `json:"errors,omitempty"`
}

// handleExplain exposes parse diagnostics so UI layers can surface syntax
// problems without re-implementing the parser.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	pq := query.Parse(q)

	resp := explainResponse{
		Tokens:       make([]explainToken, 0, len(pq.Tokens)),
		HasOperators: pq.HasOperators,
		HasFields:    pq.HasFields,
		HasQuotes:    pq.HasQuotes,
		HasGrouping:  pq.HasGrouping,
		BaseQuery:    search.BaseQuery(pq),
		Errors:       pq.Errors,
	}
	for _, tok := range pq.Tokens {
		et := explainToken{
			Kind:  tok.Kind.String(),
			Text:  tok.Text,
			Start: tok.Start,
			End:   tok.End,
		}
		if tok.Kind == query.TokenField {
			et.Field = tok.Field.String()
			et.Op = tok.Op.String()
		}
		resp.Tokens = append(resp.Tokens, et)
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
