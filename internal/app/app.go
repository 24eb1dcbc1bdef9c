package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"domainscan/internal/config"
	"domainscan/internal/enrichment"
	"domainscan/internal/infrastructure/ahrefs"
	"domainscan/internal/infrastructure/scheduler"
	"domainscan/internal/infrastructure/storage"
	"domainscan/internal/logging"
	"domainscan/internal/ports"
	"domainscan/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB
	runner *usecase.Runner
	intake *usecase.Intake
	loop   *usecase.Scheduler
}

// New connects the database and builds the runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	domainStore := storage.NewDomainStore(db)
	jobStore := storage.NewJobStore(db)
	metricsStore := storage.NewMetricsStore(db)
	lease := storage.NewLease(db)

	var fetcher ports.MetricsFetcher
	if cfg.Ahrefs.Mock {
		baseLogger.Warn("using mock metrics fetcher")
		fetcher = ahrefs.NewMockClient()
	} else {
		fetcher = ahrefs.NewClient(cfg.Ahrefs.BaseURL, cfg.Ahrefs.APIKey, cfg.Ahrefs.Country)
	}

	registry := enrichment.NewRegistry()
	registry.Register(enrichment.NewTrafficEnricher(fetcher, metricsStore))
	registry.Register(enrichment.NewKeywordsEnricher(fetcher, metricsStore))

	location := cfg.Scheduler.Location()

	runner := usecase.NewRunner(usecase.RunnerConfig{
		MaxConcurrentJobs:     cfg.Batch.MaxConcurrentJobs,
		DailyScrapeLimit:      cfg.Batch.DailyScrapeLimit,
		BatchSize:             cfg.Batch.BatchSize,
		MaxRetries:            cfg.Batch.MaxRetries,
		DelayMin:              cfg.Batch.DelayMin(),
		DelayMax:              cfg.Batch.DelayMax(),
		WorkingDays:           cfg.Batch.Weekdays(),
		Location:              location,
		LeaseTTL:              cfg.Batch.LeaseTTL(),
		FailJobsWhenAllFailed: cfg.Batch.FailJobsWhenAllFailed,
	}, usecase.RunnerDeps{
		Domains:  domainStore,
		Jobs:     jobStore,
		Metrics:  metricsStore,
		Registry: registry,
		Lease:    lease,
		Logger:   baseLogger.With("component", "batch"),
	})

	intake := usecase.NewIntake(usecase.IntakeConfig{
		SchedulingDays:    cfg.Scheduling.Days,
		MaxDomainsPerDay:  cfg.Scheduling.MaxDomainsPerDay,
		MaxConcurrentJobs: cfg.Batch.MaxConcurrentJobs,
	}, jobStore, domainStore, baseLogger.With("component", "intake"))

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, location)
	loop := usecase.NewScheduler(driver, runner, baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		runner: runner,
		intake: intake,
		loop:   loop,
	}, nil
}

// Intake exposes job creation for callers that feed validated domain lists.
func (a *Application) Intake() *usecase.Intake {
	return a.intake
}

// RunOnce executes a single batch invocation.
func (a *Application) RunOnce(ctx context.Context) (usecase.Report, error) {
	return a.runner.Run(ctx)
}

// Serve runs batch invocations on the configured cron schedule until the
// context is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.loop.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.loop.Stop(stopCtx)
}

// Close releases the database connection.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
