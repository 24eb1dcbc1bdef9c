package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"domainscan/internal/app"
	"domainscan/internal/config"
	"domainscan/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single batch invocation and exit")
	flag.Parse()

	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		report, err := application.RunOnce(ctx)
		if err != nil {
			logger.Error("batch invocation failed", "error", err)
			os.Exit(1)
		}
		logger.Info("batch invocation done",
			"date", report.Date.Format("2006-01-02"),
			"skipped", report.Skipped,
			"processed", report.Processed,
			"failed", report.Failed,
			"total", report.Total,
			"promoted", report.Promoted)
		return
	}

	if err := application.Serve(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
