package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"portfel/internal/backend"
	"portfel/internal/cli"
	plog "portfel/internal/log"
	"portfel/internal/worker"
)

func main() {
	envFile := pflag.String("env-file", "", "dotenv file to load (default .env when present)")
	skipStartupExport := pflag.Bool("skip-startup-export", false, "do not rewrite every household sheet on start")
	pflag.Parse()

	bootLogger := cli.SetupLogger(nil, plog.ComponentWorker)
	if err := cli.LoadEnvFile(*envFile); err != nil {
		bootLogger.Error("Failed to load env file", plog.FieldError, err, "path", *envFile)
		os.Exit(1)
	}
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, plog.ComponentWorker)

	logger.Info("Starting portfel-worker")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", plog.FieldError, err)
		os.Exit(1)
	}
	bcfg.RequireAMQP = true
	b, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create backend", plog.FieldError, err)
		os.Exit(1)
	}

	// The worker delivers mail itself; queuing it again would loop.
	w := worker.NewWorker(b.Repo, b.Exporter, b.Delivery)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if !*skipStartupExport {
		logger.Info("Performing startup export")
		if err := w.StartupExport(ctx); err != nil {
			logger.Error("Startup export failed", plog.FieldError, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.AMQP.ConsumeMail(gctx, w.HandleMail)
	})
	g.Go(func() error {
		return b.AMQP.ConsumeExport(gctx, w.HandleExport)
	})
	g.Go(func() error {
		// purges expired sessions
		if err := b.Processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return b.Processor.Stop(stopCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", plog.FieldError, err)
	}

	if err := b.Close(context.Background()); err != nil {
		logger.Error("Backend shutdown error", plog.FieldError, err)
	}
	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	logger.Info("Worker stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}
