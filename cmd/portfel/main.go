package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"portfel/internal/backend"
	"portfel/internal/cli"
	"portfel/internal/config"
	"portfel/internal/core"
	apphttp "portfel/internal/http"
	plog "portfel/internal/log"
)

func main() {
	port := pflag.StringP("port", "p", "", "listen port (overrides PORT)")
	envFile := pflag.String("env-file", "", "dotenv file to load (default .env when present)")
	skipCatchUp := pflag.Bool("skip-catchup", false, "do not book overdue cyclic transactions before serving")
	pflag.Parse()

	bootLogger := cli.SetupLogger(nil, plog.ComponentApp)
	if err := cli.LoadEnvFile(*envFile); err != nil {
		bootLogger.Error("Failed to load env file", plog.FieldError, err, "path", *envFile)
		os.Exit(1)
	}

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if *skipCatchUp {
		cfg.CatchUpOnStart = false
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Error("Configuration validation failed", plog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, plog.ComponentApp)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", plog.FieldError, err)
		os.Exit(1)
	}
	b, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create backend", plog.FieldError, err)
		os.Exit(1)
	}

	if cfg.CatchUpOnStart {
		runCatchUp(logger, b)
	} else {
		logger.Info("Cyclic catch-up skipped")
	}

	srv, err := apphttp.NewServer(apphttp.ServerConfig{
		Addr:                  ":" + cfg.Port,
		SessionTTL:            cfg.SessionTTL,
		SecureCookies:         cfg.SecureCookies,
		AuthRequestsPerMinute: cfg.AuthRequestsPerMinute,
		Logger:                logger,
	}, apphttp.Services{
		Accounts:     b.Services.Accounts,
		Transactions: b.Services.Transactions,
		Cyclic:       b.Services.Cyclic,
		Categories:   b.Services.Categories,
		Budgets:      b.Services.Budgets,
		Reports:      b.Services.Reports,
	}, b.Sessions, b.Repo)
	if err != nil {
		logger.Error("Failed to create HTTP server", plog.FieldError, err)
		_ = b.Close(context.Background())
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	if err := b.Processor.Start(context.Background()); err != nil {
		logger.Error("Failed to start export processor", plog.FieldError, err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", plog.FieldError, err)
		}
		if err := b.Processor.Stop(ctx); err != nil {
			logger.Error("Export processor shutdown error", plog.FieldError, err)
		}
		if err := b.Close(ctx); err != nil {
			logger.Error("Backend shutdown error", plog.FieldError, err)
		}
	})

	logger.Info("Starting portfel server",
		"port", cfg.Port,
		"amqp_enabled", b.AMQP != nil,
		"sheets_enabled", b.Exporter != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", plog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// runCatchUp books overdue cyclic transactions. A failed run is rolled back
// and logged; the server still starts.
func runCatchUp(logger *plog.Logger, b *backend.Backend) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logger.WithComponent(plog.ComponentCyclic)
	report, err := b.Services.CatchUp.Run(ctx, core.Today())
	if err != nil {
		log.Error("Cyclic catch-up failed", plog.FieldError, err)
		return
	}
	if len(report.Truncated) > 0 {
		log.Warn("Cyclic catch-up hit the iteration cap, the rest is booked on the next start",
			"templates", report.Truncated)
	}
}
