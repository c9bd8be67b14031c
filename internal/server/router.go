package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/brightboard/contentforge-backend/internal/handlers"
	"github.com/brightboard/contentforge-backend/internal/telemetry"
)

type RouterConfig struct {
	JobsHandler         *handlers.JobsHandler
	RegenerationHandler *handlers.RegenerationHandler
	PromotionHandler    *handlers.PromotionHandler
	AuditHandler        *handlers.AuditHandler
	CORSOrigins         []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(telemetry.Handler()))

	api := router.Group("/api")
	{
		// Jobs
		api.POST("/jobs", cfg.JobsHandler.SubmitJob)
		api.GET("/jobs/:id/tree", cfg.JobsHandler.GetJobTree)
		// Regenerations
		api.POST("/regenerations", cfg.RegenerationHandler.SubmitRegeneration)
		api.GET("/regenerations/:id", cfg.RegenerationHandler.GetRegeneration)
		// Retry intents
		api.POST("/retry-intents", cfg.RegenerationHandler.CreateRetryIntent)
		api.POST("/retry-intents/:id/consume", cfg.RegenerationHandler.ConsumeRetryIntent)
		api.POST("/retry-intents/:id/reject", cfg.RegenerationHandler.RejectRetryIntent)
		// Promotions
		api.POST("/promotion-candidates/:id/approve", cfg.PromotionHandler.ApproveCandidate)
		api.POST("/promotion-candidates/:id/reject", cfg.PromotionHandler.RejectCandidate)
		// Audit trail
		api.GET("/audit", cfg.AuditHandler.ListByEntity)
	}

	return router
}
