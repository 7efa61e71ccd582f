// Command portfel-catchup books overdue cyclic transactions once and exits.
// It is meant for cron when the web process is restarted rarely.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"portfel/internal/backend"
	"portfel/internal/cli"
	"portfel/internal/config"
	"portfel/internal/core"
	plog "portfel/internal/log"
)

func main() {
	envFile := pflag.String("env-file", "", "dotenv file to load (default .env when present)")
	date := pflag.String("date", "", "book as if today were this date (YYYY-MM-DD)")
	pflag.Parse()

	bootLogger := cli.SetupLogger(nil, plog.ComponentCyclic)
	if err := cli.LoadEnvFile(*envFile); err != nil {
		bootLogger.Error("Failed to load env file", plog.FieldError, err, "path", *envFile)
		os.Exit(1)
	}
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, plog.ComponentCyclic)

	today := core.Today()
	if *date != "" {
		d, err := core.ParseDate(*date)
		if err != nil {
			logger.Error("Invalid --date", plog.FieldError, err, "date", *date)
			os.Exit(2)
		}
		today = d
	}

	if err := run(logger, cfg, today); err != nil {
		logger.Error("Cyclic catch-up failed", plog.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *plog.Logger, cfg *config.Config, today core.Date) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	b, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer b.Close(context.Background())

	report, err := b.Services.CatchUp.Run(ctx, today)
	if err != nil {
		return err
	}
	// Without a broker nobody else would export the booked transactions.
	if b.AMQP == nil {
		b.Processor.ProcessPending(ctx)
	}
	logger.Info("Cyclic catch-up finished",
		"today", today.String(),
		"templates", report.Templates,
		"generated", report.Generated,
		"truncated", len(report.Truncated))
	return nil
}
