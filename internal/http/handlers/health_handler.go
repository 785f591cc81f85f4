package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/disaster-backend/internal/dto"
	"github.com/ignatzorin/disaster-backend/internal/logger"
)

const (
	serviceName  = "disaster-management-api"
	pingTimeout  = 3 * time.Second
	statusOK     = "healthy"
	statusFailed = "unhealthy"
)

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler принимает именованные проверки, например {"store": reportRepo}.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health обрабатывает GET /api/health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	status := statusOK
	results := make(map[string]string, len(h.checks))
	for name, pinger := range h.checks {
		if err := pinger.Ping(ctx); err != nil {
			logger.Log.WithField("check", name).WithError(err).Warn("Health check не прошёл")
			results[name] = statusFailed
			status = statusFailed
			continue
		}
		results[name] = statusOK
	}

	code := http.StatusOK
	if status != statusOK {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, dto.HealthResponse{
		Status:    status,
		Service:   serviceName,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	})
}
