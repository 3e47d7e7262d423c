// Package server exposes the agent over HTTP the way a graph hosting
// platform does: the deployment factory is called for every request with the
// configuration the request carries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gxo-labs/crossws/internal/agent"
	"github.com/gxo-labs/crossws/internal/config"
	internalevents "github.com/gxo-labs/crossws/internal/events"
	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds an invocation request body.
const maxBodyBytes = 1 << 20

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	Input  map[string]interface{}  `json:"input"`
	Config *crossws.RunnableConfig `json:"config,omitempty"`
}

// InvokeResponse is the body of a successful POST /invoke.
type InvokeResponse struct {
	WorkspaceID string         `json:"workspace_id"`
	Project     string         `json:"project"`
	Output      crossws.Result `json:"output"`
	Events      []events.Event `json:"events,omitempty"`
}

// Server serves invocations of one agent.
type Server struct {
	agent   *agent.Agent
	metrics metrics.RegistryProvider
	log     crosswslog.Logger
}

// New creates a Server. metricsProvider backs GET /metrics.
func New(a *agent.Agent, metricsProvider metrics.RegistryProvider, log crosswslog.Logger) *Server {
	return &Server{
		agent:   a,
		metrics: metricsProvider,
		log:     log.With("component", "Server"),
	}
}

// RegisterRoutes registers the HTTP routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /invoke", s.handleInvoke)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Infof("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// handleInvoke handles POST /invoke. With ?events=true the response also
// lists the execution events of the invocation.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Input == nil {
		req.Input = map[string]interface{}{}
	}

	rc := req.Config.Clone()
	var recorder *internalevents.Recorder
	if r.URL.Query().Get("events") == "true" {
		recorder = internalevents.NewRecorder()
		rc.Listeners = append(rc.Listeners, recorder)
	}

	d := s.agent.Deploy(rc)
	out, err := d.Graph.Invoke(r.Context(), req.Input, rc)
	if err != nil {
		status := http.StatusInternalServerError
		if crosswserrors.IsValidationError(err) {
			status = http.StatusUnprocessableEntity
		}
		s.log.Warnf("Invocation for workspace '%s' failed: %v", d.Workspace.Raw, err)
		writeError(w, status, err.Error())
		return
	}

	resp := InvokeResponse{
		WorkspaceID: d.Workspace.Raw,
		Project:     d.Binding.ProjectName,
		Output:      crossws.ResultFromState(out),
	}
	if recorder != nil {
		resp.Events = recorder.Events()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSchema handles GET /schema.
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(config.RuntimeSchema())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
