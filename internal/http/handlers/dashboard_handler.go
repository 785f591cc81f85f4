package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/disaster-backend/internal/dto"
	"github.com/ignatzorin/disaster-backend/internal/http/handlers/common"
	"github.com/ignatzorin/disaster-backend/internal/usecase/query"
)

// DashboardHandler отдаёт агрегаты для панели мониторинга.
type DashboardHandler struct {
	statsUC *query.DashboardStatsUseCase
}

func NewDashboardHandler(statsUC *query.DashboardStatsUseCase) *DashboardHandler {
	return &DashboardHandler{statsUC: statsUC}
}

// GetStats обрабатывает GET /api/dashboard/stats.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.statsUC.Execute(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dto.ToDashboardStatsResponse(stats))
}
