package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/dto"
	"github.com/ignatzorin/disaster-backend/internal/http/handlers/common"
	"github.com/ignatzorin/disaster-backend/internal/usecase/query"
	"github.com/ignatzorin/disaster-backend/internal/usecase/report"
)

// ReportHandler обслуживает /api/reports.
type ReportHandler struct {
	submitUC       *report.SubmitReportUseCase
	getUC          *report.GetReportUseCase
	changeStatusUC *report.ChangeStatusUseCase
	listUC         *query.ListFilteredUseCase
	nearUC         *query.ListNearUseCase
	userReportsUC  *query.ListUserReportsUseCase
}

func NewReportHandler(
	submitUC *report.SubmitReportUseCase,
	getUC *report.GetReportUseCase,
	changeStatusUC *report.ChangeStatusUseCase,
	listUC *query.ListFilteredUseCase,
	nearUC *query.ListNearUseCase,
	userReportsUC *query.ListUserReportsUseCase,
) *ReportHandler {
	return &ReportHandler{
		submitUC:       submitUC,
		getUC:          getUC,
		changeStatusUC: changeStatusUC,
		listUC:         listUC,
		nearUC:         nearUC,
		userReportsUC:  userReportsUC,
	}
}

// CreateReport обрабатывает POST /api/reports.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	created, err := h.submitUC.Execute(c.Request.Context(), report.SubmitReportInput{
		ReporterID:   req.UserID,
		ReporterName: req.Username,
		DisasterType: req.DisasterType,
		Severity:     req.Severity,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Description:  req.Description,
		Photos:       req.Photos,
		Source:       valueobject.ReportSourceAPI,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dto.ToReportResponse(created))
}

// GetReport обрабатывает GET /api/reports/:id.
func (h *ReportHandler) GetReport(c *gin.Context) {
	found, err := h.getUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dto.ToReportResponse(found))
}

// ListUserReports обрабатывает GET /api/reports/user/:id.
func (h *ReportHandler) ListUserReports(c *gin.Context) {
	limit := common.ParseIntQuery(c, "limit", query.DefaultUserLimit)
	reports, err := h.userReportsUC.Execute(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dto.ToReportResponses(reports))
}

// UpdateStatus обрабатывает PUT /api/reports/:id/status.
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "поле status обязательно")
		return
	}

	updated, err := h.changeStatusUC.Execute(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dto.ToReportResponse(updated))
}

// ListReports обрабатывает GET /api/reports с фильтрами severity, disaster_type, status.
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports, err := h.listUC.Execute(c.Request.Context(), query.ListFilteredInput{
		Severity:     c.Query("severity"),
		DisasterType: c.Query("disaster_type"),
		Status:       c.Query("status"),
		Limit:        common.ParseIntQuery(c, "limit", query.DefaultListLimit),
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	items := dto.ToReportResponses(reports)
	common.RespondJSON(c, http.StatusOK, dto.ReportListResponse{Reports: items, Count: len(items)})
}

// ListNearby обрабатывает GET /api/reports/nearby?lat=&lng=&radius=&limit=.
func (h *ReportHandler) ListNearby(c *gin.Context) {
	lat, hasLat, latErr := common.ParseFloatQuery(c, "lat")
	lng, hasLng, lngErr := common.ParseFloatQuery(c, "lng")
	if !hasLat || !hasLng {
		common.RespondBadRequest(c, "параметры lat и lng обязательны")
		return
	}
	if latErr != nil || lngErr != nil {
		common.RespondBadRequest(c, "параметры lat и lng должны быть числами")
		return
	}

	radius, hasRadius, err := common.ParseFloatQuery(c, "radius")
	if err != nil {
		common.RespondBadRequest(c, "параметр radius должен быть числом")
		return
	}
	if !hasRadius {
		radius = query.DefaultRadiusKm
	}

	reports, err := h.nearUC.Execute(c.Request.Context(), query.ListNearInput{
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  radius,
		Limit:     common.ParseIntQuery(c, "limit", query.DefaultNearbyLimit),
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	items := dto.ToReportResponses(reports)
	common.RespondJSON(c, http.StatusOK, dto.NearbyReportsResponse{
		Reports: items,
		Count:   len(items),
		Center:  dto.Center{Lat: lat, Lng: lng},
		Radius:  radius,
	})
}
