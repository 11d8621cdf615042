// LabForge orchestrator server — provides the HTTP API and drives the
// agent pipeline that turns a free-form teaching prompt into a validated
// networking lab exercise.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/labforge/labforge/pkg/agent"
	"github.com/labforge/labforge/pkg/api"
	"github.com/labforge/labforge/pkg/config"
	"github.com/labforge/labforge/pkg/linter"
	"github.com/labforge/labforge/pkg/llm"
	"github.com/labforge/labforge/pkg/pipeline"
	"github.com/labforge/labforge/pkg/registry"
	"github.com/labforge/labforge/pkg/runner"
	"github.com/labforge/labforge/pkg/services"
	"github.com/labforge/labforge/pkg/validator"
	"github.com/labforge/labforge/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envPath := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	// 1. Load environment and configuration
	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting LabForge",
		"version", version.GitCommit,
		"http_port", cfg.HTTPPort,
		"llm_model", cfg.LLMModel)

	// 2. External collaborators
	llmClient, err := llm.NewAnthropic(cfg.LLMCredential, cfg.LLMModel)
	if err != nil {
		slog.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	if cfg.LinterEndpoint == "" {
		slog.Error("LINTER_ENDPOINT is required")
		os.Exit(1)
	}
	lintClient := linter.NewHTTPClient(cfg.LinterEndpoint)

	if cfg.RunnerEndpoint == "" {
		slog.Error("RUNNER_ENDPOINT is required")
		os.Exit(1)
	}
	runnerClient := runner.NewHTTPClient(cfg.RunnerEndpoint)

	var store runner.ArtifactStore
	if cfg.ArtifactBucket != "" {
		store = runner.NewHTTPStore(cfg.ArtifactBucket)
	} else {
		slog.Warn("ARTIFACT_BUCKET not set, using in-memory artifact store")
		store = runner.NewMemStore()
	}

	// 3. Registry, agents and pipeline driver
	reg := registry.New(cfg.PendingQueueSize)

	planner := agent.NewPlanner(llmClient, reg, cfg.MaxPlannerTurns, cfg.MaxStageRetries, cfg.UserReplyTimeout)
	designer := agent.NewDesigner(llmClient, lintClient, cfg.MaxStageRetries, cfg.FailOnLintErrors)
	author := agent.NewAuthor(llmClient, lintClient, cfg.MaxStageRetries, cfg.FailOnLintErrors)
	analyzer := agent.NewAnalyzer(llmClient, cfg.MaxStageRetries)
	val := validator.New(runnerClient, store, cfg.PollInterval)

	driver := pipeline.NewDriver(reg, planner, designer, author, analyzer, val, cfg)
	labService := services.NewLabService(reg, driver)
	slog.Info("Pipeline initialized", "stats", cfg.Stats())

	// 4. Start HTTP server (non-blocking)
	httpServer := api.NewServer(labService, cfg.CORSOrigins)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	// 5. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 6. Graceful shutdown: stop accepting requests, then cancel in-flight labs
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	for _, lab := range reg.List() {
		if !lab.Status.Terminal() {
			reg.Cancel(lab.LabID)
		}
	}

	slog.Info("LabForge stopped")
}
