// Package main is the entry point for the remedia-server binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quorumsec/remedia/internal/api"
	"github.com/quorumsec/remedia/pkg/adapter"
	"github.com/quorumsec/remedia/pkg/config"
	"github.com/quorumsec/remedia/pkg/ledger"
	"github.com/quorumsec/remedia/pkg/logging"
	"github.com/quorumsec/remedia/pkg/orchestrator"
	"github.com/quorumsec/remedia/pkg/storage"
	"github.com/quorumsec/remedia/pkg/telemetry"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	textLogs := flag.Bool("text", false, "Enable human-readable console logging")
	flag.Parse()

	cfgProvider, err := config.NewFileConfigProvider(*configPath, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize config provider", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cfgProvider.Close(); err != nil {
			slog.Error("Failed to close config provider", "error", err)
		}
	}()

	cfg := cfgProvider.Current()
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := logging.NewLogger(logging.Config{
		Level: cfg.Logging.Level,
		Text:  cfg.Logging.Text || *textLogs,
	})
	slog.SetDefault(logger)

	logger.Info("Starting remedia-server", "config", *configPath, "listen", cfg.Server.Listen)

	shutdownTelemetry, err := telemetry.SetupProvider(context.Background(), telemetry.Config{
		ServiceName: "remedia",
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	incidents, approvals, executions, closeStores, err := buildLedgers(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Error("Failed to open snapshot stores", "dir", cfg.Storage.Dir, "error", err)
		os.Exit(1)
	}
	defer closeStores()

	midpoint := adapter.NewMidPointAdapter(governanceConfig(cfg), logger)
	governance := adapter.NewBreakerAdapter(midpoint, adapter.DefaultBreakerConfig(), logger)

	// Pick up governance connection changes from config reloads without a
	// restart.
	go func() {
		for snapshot := range cfgProvider.Subscribe() {
			midpoint.UpdateConfig(governanceConfig(snapshot))
		}
	}()

	var graph *adapter.GraphClient
	if cfg.Graph.BaseURL != "" {
		graph = adapter.NewGraphClient(adapter.GraphConfig{
			BaseURL:  cfg.Graph.BaseURL,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
			Timeout:  cfg.Graph.Timeout(),
		})
	}

	runner := orchestrator.New(incidents, approvals, executions, governance, logger)

	server := api.NewServer(api.ServerConfig{
		Incidents:  incidents,
		Approvals:  approvals,
		Executions: executions,
		Runner:     runner,
		Graph:      graph,
		Logger:     logger,
	})

	if err := server.Start(cfg.Server.Listen); err != nil {
		logger.Error("Failed to start server", "addr", cfg.Server.Listen, "error", err)
		os.Exit(1)
	}
	logger.Info("Server listening", "addr", server.Addr())

	waitForShutdown(server, shutdownTelemetry, logger)
}

func governanceConfig(cfg *config.Config) adapter.MidPointConfig {
	return adapter.MidPointConfig{
		BaseURL:  cfg.Governance.BaseURL,
		Username: cfg.Governance.Username,
		Password: cfg.Governance.Password,
		Timeout:  cfg.Governance.Timeout(),
		Retry: adapter.RetryConfig{
			MaxAttempts: cfg.Governance.MaxAttempts,
		},
	}
}

func buildLedgers(dir string, logger *slog.Logger) (*ledger.IncidentLedger, *ledger.ApprovalLedger, *ledger.ExecutionLog, func(), error) {
	incidentStore, err := storage.NewFileStore(filepath.Join(dir, "incidents.json"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	approvalStore, err := storage.NewFileStore(filepath.Join(dir, "approvals.json"))
	if err != nil {
		_ = incidentStore.Close()
		return nil, nil, nil, nil, err
	}
	executionStore, err := storage.NewFileStore(filepath.Join(dir, "executions.json"))
	if err != nil {
		_ = incidentStore.Close()
		_ = approvalStore.Close()
		return nil, nil, nil, nil, err
	}

	closeAll := func() {
		for _, s := range []storage.SnapshotStore{incidentStore, approvalStore, executionStore} {
			if err := s.Close(); err != nil {
				logger.Error("Failed to close store", "error", err)
			}
		}
	}

	return ledger.NewIncidentLedger(incidentStore, logger),
		ledger.NewApprovalLedger(approvalStore, logger),
		ledger.NewExecutionLog(executionStore, logger),
		closeAll, nil
}

func waitForShutdown(server *api.Server, shutdownTelemetry func(context.Context) error, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	logger.Info("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Error("Telemetry shutdown error", "error", err)
	}
}
