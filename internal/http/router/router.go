package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/disaster-backend/internal/config"
	"github.com/ignatzorin/disaster-backend/internal/http/handlers"
	"github.com/ignatzorin/disaster-backend/internal/http/middleware"
)

func SetupRouter(
	cfg *config.Config,
	rateStore limiter.Store,
	healthHandler *handlers.HealthHandler,
	reportHandler *handlers.ReportHandler,
	alertHandler *handlers.AlertHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.GET("/health", healthHandler.Health)

	// Live-лента без rate limit.
	if wsHandler != nil {
		api.GET("/alerts/ws", wsHandler.Handle)
	}

	limited := api.Group("/")
	limited.Use(middleware.RateLimitMiddleware(rateStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		limited.POST("/reports", reportHandler.CreateReport)
		limited.GET("/reports", reportHandler.ListReports)
		limited.GET("/reports/nearby", reportHandler.ListNearby)
		limited.GET("/reports/user/:id", reportHandler.ListUserReports)
		limited.GET("/reports/:id", reportHandler.GetReport)
		limited.PUT("/reports/:id/status", reportHandler.UpdateStatus)

		limited.GET("/dashboard/stats", dashboardHandler.GetStats)

		limited.GET("/alerts", alertHandler.ListAlerts)
		limited.GET("/alerts/:id", middleware.UUIDValidator("id"), alertHandler.GetAlert)
		limited.PUT("/alerts/:id/status", middleware.UUIDValidator("id"), alertHandler.UpdateStatus)
	}

	return r
}
