// Package httpapi serves the workflow runner over HTTP.
//
// Routes:
//
//	GET  /health                  liveness, never authenticated
//	GET  /mcp/tools               protocol tool definitions
//	POST /mcp/call                {"name": ..., "arguments": {...}}
//	GET  /workflows               every registered definition
//	GET  /workflows/{name}        one definition
//	PUT  /workflows/{name}        register {"steps": [...]}
//	POST /workflows/{name}/run    run with {"context": {...}}, returns the results
//
// When a token is configured, /mcp and /workflows require
// "Authorization: Bearer <token>".
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"toolflow/internal/logging"
	"toolflow/internal/toolapi"
	"toolflow/internal/value"
	"toolflow/internal/workflow"
)

// Config contains server settings.
type Config struct {
	Token          string
	RequestTimeout time.Duration
}

// Server contains the configured router and the runner it exposes.
type Server struct {
	cfg     Config
	router  *chi.Mux
	runner  *workflow.Runner
	service *toolapi.Service
	logger  *zap.SugaredLogger
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config, runner *workflow.Runner, service *toolapi.Service, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		runner:  runner,
		service: service,
		logger:  logger,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/mcp", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/tools", s.handleListTools)
		r.Post("/call", s.handleCall)
	})

	s.router.Route("/workflows", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/", s.handleListWorkflows)
		r.Get("/{name}", s.handleGetWorkflow)
		r.Put("/{name}", s.handlePutWorkflow)
		r.Post("/{name}/run", s.handleRunWorkflow)
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, letting in-flight requests finish for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("starting HTTP server", "addr", addr, "auth", s.cfg.Token != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Infow("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Infow("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		want := "Bearer " + s.cfg.Token
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(want)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
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

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.service.Definitions()})
}

// CallRequest is the body of POST /mcp/call.
type CallRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"arguments"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if _, ok := s.service.Definition(req.Name); !ok {
		writeJSON(w, http.StatusNotFound, toolapi.Result{Text: fmt.Sprintf("Unknown tool: %s", req.Name), IsError: true})
		return
	}

	writeJSON(w, http.StatusOK, s.service.Call(r.Context(), req.Name, req.Args))
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"workflows": s.runner.Registry().Snapshot()})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	steps, ok := s.runner.Registry().Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %s", workflow.ErrUnknownWorkflow, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "steps": steps})
}

// PutWorkflowRequest is the body of PUT /workflows/{name}.
type PutWorkflowRequest struct {
	Steps []workflow.Step `json:"steps"`
}

func (s *Server) handlePutWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req PutWorkflowRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.Steps == nil {
		writeError(w, http.StatusBadRequest, "steps is required")
		return
	}
	for i, step := range req.Steps {
		if step.Tool == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("step %d: tool is required", i+1))
			return
		}
	}

	s.runner.Register(name, req.Steps)
	s.logger.Infow("registered workflow", "workflow", name, "steps", len(req.Steps))
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "steps": len(req.Steps)})
}

// RunRequest is the body of POST /workflows/{name}/run.
type RunRequest struct {
	Context map[string]value.Value `json:"context"`
}

func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req RunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	results, err := s.runner.Run(r.Context(), name, workflow.Context(req.Context))
	if err != nil {
		writeError(w, statusForRunError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func statusForRunError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrUnknownWorkflow):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrUnresolvedPlaceholder):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
