package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brightboard/contentforge-backend/internal/db"
	"github.com/brightboard/contentforge-backend/internal/jobs"
	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/queue"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/services"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
	"github.com/brightboard/contentforge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis queue
	queueClient, err := queue.NewRedisClient(log)
	if err != nil {
		log.Error("Redis init failed", "error", err)
		os.Exit(1)
	}
	defer queueClient.Close()

	// Repos
	log.Info("Setting up Repos from worker...")
	executionJobRepo := repos.NewExecutionJobRepo(thePG, log)
	hydrationJobRepo := repos.NewHydrationJobRepo(thePG, log)
	outboxRepo := repos.NewOutboxRepo(thePG, log)
	jobLockRepo := repos.NewJobLockRepo(thePG, log)
	regenerationJobRepo := repos.NewRegenerationJobRepo(thePG, log)
	regenerationOutputRepo := repos.NewRegenerationOutputRepo(thePG, log)
	promotionCandidateRepo := repos.NewPromotionCandidateRepo(thePG, log)
	executionLogRepo := repos.NewJobExecutionLogRepo(thePG, log)
	generatedContentRepo := repos.NewGeneratedContentRepo(thePG, log)

	// Services
	log.Info("Setting up Services from worker...")
	auditService := services.NewAuditService(thePG, log, executionLogRepo)
	generationClient, err := services.NewGenerationClient(log)
	if err != nil {
		log.Error("Generation client init failed", "error", err)
		os.Exit(1)
	}

	// Workers
	runner := jobs.NewRunner(thePG, log, hydrationJobRepo, auditService)
	hydrationWork := jobs.NewHydrationWork(log, hydrationJobRepo, outboxRepo, generatedContentRepo, generationClient)
	regenWorker := jobs.NewRegenerationWorker(thePG, log, regenerationJobRepo, regenerationOutputRepo, promotionCandidateRepo, generationClient, auditService)
	queueWorker := jobs.NewQueueWorker(log, queueClient, runner, hydrationWork, regenWorker)

	dispatchInterval := utils.GetEnvAsDuration("DISPATCH_INTERVAL", 2*time.Second, log)
	dispatcher := jobs.NewDispatcher(log, outboxRepo, queueClient, dispatchInterval)

	// Periodic jobs
	reconciler := jobs.NewReconciler(thePG, log, hydrationJobRepo, executionJobRepo, auditService)
	registry := jobs.NewRegistry()
	if err := registry.Register(jobs.Definition{
		Name:        "reconcile_execution_jobs",
		Description: "Completes execution jobs whose hydration tree is content-ready",
		CronSpec:    utils.GetEnv("RECONCILE_CRON", "*/30 * * * * *", log),
		LockTTL:     utils.GetEnvAsDuration("RECONCILE_LOCK_TTL", 5*time.Minute, log),
	}); err != nil {
		log.Error("Register reconciler definition failed", "error", err)
		os.Exit(1)
	}
	if err := registry.Register(jobs.Definition{
		Name:        "sweep_pending_regenerations",
		Description: "Claims regeneration jobs whose queue message was lost",
		CronSpec:    utils.GetEnv("REGEN_SWEEP_CRON", "0 */2 * * * *", log),
		LockTTL:     utils.GetEnvAsDuration("REGEN_SWEEP_LOCK_TTL", 5*time.Minute, log),
	}); err != nil {
		log.Error("Register regeneration sweep definition failed", "error", err)
		os.Exit(1)
	}

	scheduler := jobs.NewScheduler(log, jobLockRepo, registry)
	if err := scheduler.Add("reconcile_execution_jobs", func(ctx context.Context) error {
		_, err := reconciler.RunOnce(ctx)
		return err
	}); err != nil {
		log.Error("Schedule reconciler failed", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Add("sweep_pending_regenerations", func(ctx context.Context) error {
		for {
			processed, err := regenWorker.ProcessNext(ctx)
			if err != nil {
				return err
			}
			if !processed {
				return nil
			}
		}
	}); err != nil {
		log.Error("Schedule regeneration sweep failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	scheduler.Start(ctx)

	metricsPort := utils.GetEnv("METRICS_PORT", "9090", log)
	metricsServer := &http.Server{Addr: ":" + metricsPort, Handler: telemetry.Handler()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queueWorker.Start(gctx)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	log.Info("Worker process started", "dispatch_interval", dispatchInterval, "metrics_port", metricsPort)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Worker stopped")
}
