package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/disaster-backend/internal/dto"
	"github.com/ignatzorin/disaster-backend/internal/http/handlers/common"
	"github.com/ignatzorin/disaster-backend/internal/usecase/alert"
)

// AlertHandler обслуживает /api/alerts.
type AlertHandler struct {
	listUC         *alert.ListAlertsUseCase
	getUC          *alert.GetAlertUseCase
	changeStatusUC *alert.ChangeAlertStatusUseCase
}

func NewAlertHandler(listUC *alert.ListAlertsUseCase, getUC *alert.GetAlertUseCase, changeStatusUC *alert.ChangeAlertStatusUseCase) *AlertHandler {
	return &AlertHandler{listUC: listUC, getUC: getUC, changeStatusUC: changeStatusUC}
}

// ListAlerts обрабатывает GET /api/alerts?status=&limit=.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.listUC.Execute(c.Request.Context(), alert.ListAlertsInput{
		Status: c.Query("status"),
		Limit:  common.ParseIntQuery(c, "limit", alert.DefaultListLimit),
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	items := dto.ToAlertResponses(alerts)
	common.RespondJSON(c, http.StatusOK, dto.AlertListResponse{Alerts: items, Count: len(items)})
}

func (h *AlertHandler) GetAlert(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "некорректный ID оповещения")
		return
	}

	found, err := h.getUC.Execute(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dto.ToAlertResponse(found))
}

// UpdateStatus обрабатывает PUT /api/alerts/:id/status.
func (h *AlertHandler) UpdateStatus(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "некорректный ID оповещения")
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "поле status обязательно")
		return
	}

	updated, err := h.changeStatusUC.Execute(c.Request.Context(), id, req.Status)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dto.ToAlertResponse(updated))
}
