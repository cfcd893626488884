// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz                 liveness and build info
//	POST   /v1/cells                build a cell from comparator parameters
//	GET    /v1/cells                list stored cells, newest first
//	GET    /v1/cells/{id}           the stored cell document
//	DELETE /v1/cells/{id}           remove a stored cell
//	GET    /v1/cells/{id}/svg       layout preview
//	GET    /v1/cells/{id}/netlist   netlist diagram (SVG), or DOT with ?format=dot
//
// Errors are JSON objects {"error": {"code", "message"}} with the HTTP status
// derived from the error code.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/strongarm/pkg/buildinfo"
	"github.com/matzehuels/strongarm/pkg/comparator"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/observability"
	"github.com/matzehuels/strongarm/pkg/pipeline"
	"github.com/matzehuels/strongarm/pkg/render"
	"github.com/matzehuels/strongarm/pkg/store"
)

// Limits.
const (
	MaxBodyBytes   = 1 << 20
	DefaultTimeout = 2 * time.Minute
)

// Server serves cells built by a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
	mux    chi.Router
}

// New wires the routes.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{runner: runner, store: st, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(middleware.Timeout(DefaultTimeout))

	r.Get("/healthz", s.health)
	r.Route("/v1/cells", func(r chi.Router) {
		r.Post("/", s.createCell)
		r.Get("/", s.listCells)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getCell)
			r.Delete("/", s.deleteCell)
			r.Get("/svg", s.cellSVG)
			r.Get("/netlist", s.cellNetlist)
		})
	})
	s.mux = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// observe reports every request to the HTTP hooks and the debug log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, path, status, d)
		s.logger.Debug("request", "method", r.Method, "path", path, "status", status, "duration", d)
	})
}

// =============================================================================
// Handlers
// =============================================================================

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// CreateRequest is the body of POST /v1/cells. Omitted parameters take
// their defaults; an empty body builds the reference comparator.
type CreateRequest struct {
	Params    comparator.Params `json:"params"`
	SkipRoute bool              `json:"skip_route,omitempty"`
	Refresh   bool              `json:"refresh,omitempty"`
}

// CreateResponse is returned by POST /v1/cells.
type CreateResponse struct {
	*store.Record
	MeshCached bool `json:"mesh_cached"`
}

func (s *Server) createCell(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}

	res, err := s.runner.Execute(r.Context(), pipeline.Options{
		Params:    req.Params,
		SkipRoute: req.SkipRoute,
		Refresh:   req.Refresh,
		Logger:    s.logger,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rec := store.NewRecord(res.Cell.Document(s.runner.Process))
	if err := s.store.Save(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/cells/"+rec.ID)
	writeJSON(w, http.StatusCreated, CreateResponse{Record: rec.Summary(), MeshCached: res.CacheInfo.MeshHit})
}

func (s *Server) listCells(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cells": recs})
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) getCell(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.record(w, r); ok {
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) deleteCell(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cellSVG(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	s.writeArtifact(w, r, rec, render.FormatSVG, "image/svg+xml")
}

func (s *Server) cellNetlist(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == render.FormatDOT {
		s.writeArtifact(w, r, rec, render.FormatDOT, "text/vnd.graphviz")
		return
	}
	s.writeArtifact(w, r, rec, render.FormatNetlist, "image/svg+xml")
}

func (s *Server) writeArtifact(w http.ResponseWriter, r *http.Request, rec *store.Record, format, contentType string) {
	data, err := s.runner.Render(r.Context(), rec.Document, format)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	writeJSON(w, StatusFor(err), map[string]errorBody{
		"error": {Code: string(code), Message: apperrors.UserMessage(err)},
	})
}

// StatusFor maps an error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidFormat,
		apperrors.ErrCodeInvalidPath, apperrors.ErrCodeConfiguration:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeLattice, apperrors.ErrCodeRouting, apperrors.ErrCodeFrozen:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
