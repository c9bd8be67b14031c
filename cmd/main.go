package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/brightboard/contentforge-backend/internal/db"
	"github.com/brightboard/contentforge-backend/internal/handlers"
	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/server"
	"github.com/brightboard/contentforge-backend/internal/services"
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

	// Repos
	log.Info("Setting up Repos from main...")
	executionJobRepo := repos.NewExecutionJobRepo(thePG, log)
	hydrationJobRepo := repos.NewHydrationJobRepo(thePG, log)
	outboxRepo := repos.NewOutboxRepo(thePG, log)
	regenerationJobRepo := repos.NewRegenerationJobRepo(thePG, log)
	retryIntentRepo := repos.NewRetryIntentRepo(thePG, log)
	promotionCandidateRepo := repos.NewPromotionCandidateRepo(thePG, log)
	publishedOutputRepo := repos.NewPublishedOutputRepo(thePG, log)
	executionLogRepo := repos.NewJobExecutionLogRepo(thePG, log)
	subjectRepo := repos.NewSubjectRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	auditService := services.NewAuditService(thePG, log, executionLogRepo)
	syllabusHydrator := services.NewSyllabusHydrator(log, hydrationJobRepo, outboxRepo)
	jobService := services.NewJobService(
		thePG,
		log,
		executionJobRepo,
		hydrationJobRepo,
		subjectRepo,
		auditService,
		[]services.Hydrator{syllabusHydrator},
	)
	regenService := services.NewRegenerationService(thePG, log, regenerationJobRepo, outboxRepo, auditService)
	retryIntentService := services.NewRetryIntentService(thePG, log, retryIntentRepo, regenerationJobRepo, outboxRepo, auditService)
	promotionService := services.NewPromotionService(thePG, log, promotionCandidateRepo, publishedOutputRepo, auditService)

	// Handlers
	log.Info("Setting up handlers from main...")
	jobsHandler := handlers.NewJobsHandler(jobService)
	regenerationHandler := handlers.NewRegenerationHandler(regenService, retryIntentService)
	promotionHandler := handlers.NewPromotionHandler(promotionService)
	auditHandler := handlers.NewAuditHandler(executionLogRepo)

	// Router
	log.Info("Setting up router from main...")
	corsOrigins := strings.Split(utils.GetEnv("CORS_ORIGINS", "http://localhost:3000", log), ",")
	router := server.NewRouter(server.RouterConfig{
		JobsHandler:         jobsHandler,
		RegenerationHandler: regenerationHandler,
		PromotionHandler:    promotionHandler,
		AuditHandler:        auditHandler,
		CORSOrigins:         corsOrigins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
