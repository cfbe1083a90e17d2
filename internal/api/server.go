// Package api exposes the remediation pipeline over HTTP: a JSON API for
// programmatic callers and a small set of HTML pages for reviewers. The
// handlers are thin views over the ledgers and the orchestrator; no
// pipeline logic lives here.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/quorumsec/remedia/pkg/adapter"
	"github.com/quorumsec/remedia/pkg/ledger"
	"github.com/quorumsec/remedia/pkg/orchestrator"
)

// Server is the HTTP front-end of the control plane.
type Server struct {
	incidents  *ledger.IncidentLedger
	approvals  *ledger.ApprovalLedger
	executions *ledger.ExecutionLog
	runner     *orchestrator.Orchestrator
	graph      *adapter.GraphClient
	logger     *slog.Logger
	metrics    *Metrics

	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// ServerConfig wires the server's collaborators. Graph may be nil when no
// access-graph service is configured; the related endpoints then report
// 503.
type ServerConfig struct {
	Incidents  *ledger.IncidentLedger
	Approvals  *ledger.ApprovalLedger
	Executions *ledger.ExecutionLog
	Runner     *orchestrator.Orchestrator
	Graph      *adapter.GraphClient
	Logger     *slog.Logger
}

// NewServer constructs the front-end with its routes registered.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		incidents:  cfg.Incidents,
		approvals:  cfg.Approvals,
		executions: cfg.Executions,
		runner:     cfg.Runner,
		graph:      cfg.Graph,
		logger:     logger,
		metrics:    NewMetrics(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Handler:      s.metrics.Instrument(otelhttp.NewHandler(mux, "remedia.api")),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start binds the listener and serves in a background goroutine. The
// resolved address is available from Addr, which matters when addr is :0.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind listener on %s: %w", addr, err)
	}
	s.listener = listener
	s.running = true

	s.logger.Info("server listening", "addr", listener.Addr().String())
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/incidents", s.handleCreateIncident)
	mux.HandleFunc("GET /api/incidents", s.handleListIncidents)
	mux.HandleFunc("GET /api/incidents/{id}", s.handleGetIncident)
	mux.HandleFunc("GET /api/incidents/{id}/approvals", s.handleListApprovals)
	mux.HandleFunc("POST /api/incidents/{id}/approvals", s.handleRecordApproval)
	mux.HandleFunc("GET /api/incidents/{id}/executions", s.handleListExecutions)
	mux.HandleFunc("GET /api/incidents/{id}/blast-radius", s.handleBlastRadius)
	mux.HandleFunc("GET /api/recommendations", s.handleRecommendations)
	mux.HandleFunc("POST /api/orchestrator/run", s.handleRunPass)

	mux.HandleFunc("GET /platform/", s.handleHome)
	mux.HandleFunc("GET /platform/incidents", s.handleIncidentsPage)
	mux.HandleFunc("GET /platform/incidents/new", s.handleNewIncidentPage)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/platform/", http.StatusSeeOther)
	})
}
