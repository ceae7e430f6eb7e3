package http

import (
	"github.com/foodlog/backend/config"
	"github.com/foodlog/backend/internal/infrastructure/observability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router. collector may be nil,
// in which case /metrics is not served.
func SetupRouter(cfg *config.Config, handler *Handler, collector *observability.Collector, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.MaxMultipartMemory = maxImageBytes

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	if collector != nil {
		router.Use(MetricsMiddleware(collector))
	}
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)
	if collector != nil {
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		foods := v1.Group("/foods")
		{
			foods.POST("/resolve", handler.ResolveFood)
			foods.POST("/preview", handler.PreviewFood)
			foods.POST("/vision", handler.EstimateImage)
		}

		entries := v1.Group("/entries")
		{
			entries.POST("", handler.CreateEntry)
			entries.PUT("/:id", handler.UpdateEntry)
			entries.GET("/:id/base", handler.GetEntryBase)
			entries.DELETE("/:id", handler.DeleteEntry)
		}

		v1.GET("/days/:date", handler.GetDay)
		v1.GET("/history", handler.GetHistory)

		v1.GET("/profile", handler.GetProfile)
		v1.PUT("/profile", handler.UpdateProfile)
		v1.GET("/goals", handler.GetGoals)
		v1.PUT("/goals/override", handler.SetGoalOverride)

		favorites := v1.Group("/favorites")
		{
			favorites.GET("", handler.ListFavorites)
			favorites.POST("", handler.AddFavorite)
			favorites.DELETE("/:id", handler.RemoveFavorite)
		}
	}

	return router
}
