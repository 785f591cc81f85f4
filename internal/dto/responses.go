package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/usecase/query"
)

// ErrorResponse - единый формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
}

type ReportResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	DisasterType string    `json:"disaster_type"`
	Severity     string    `json:"severity"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Description  string    `json:"description"`
	Photos       []string  `json:"photos"`
	Status       string    `json:"status"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToReportResponse(r *entity.Report) ReportResponse {
	resp := ReportResponse{
		ID:           r.ID,
		UserID:       r.ReporterID,
		Username:     r.ReporterName,
		DisasterType: string(r.DisasterType),
		Severity:     string(r.Severity),
		Description:  r.Description,
		Photos:       make([]string, 0, len(r.Photos)),
		Status:       string(r.Status),
		Source:       string(r.Source),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	resp.Photos = append(resp.Photos, r.Photos...)
	if r.Location != nil {
		lat, lng := r.Location.Latitude, r.Location.Longitude
		resp.Latitude = &lat
		resp.Longitude = &lng
	}
	return resp
}

func ToReportResponses(reports []*entity.Report) []ReportResponse {
	responses := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		responses = append(responses, ToReportResponse(r))
	}
	return responses
}

// ReportListResponse - ответ GET /reports.
type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Count   int              `json:"count"`
}

type Center struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NearbyReportsResponse - ответ GET /reports/nearby.
type NearbyReportsResponse struct {
	Reports []ReportResponse `json:"reports"`
	Count   int              `json:"count"`
	Center  Center           `json:"center"`
	Radius  float64          `json:"radius"`
}

type AlertResponse struct {
	ID           uuid.UUID `json:"id"`
	ReportID     string    `json:"report_id"`
	AlertType    string    `json:"alert_type"`
	DisasterType string    `json:"disaster_type"`
	Severity     string    `json:"severity"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToAlertResponse(a *entity.EmergencyAlert) AlertResponse {
	resp := AlertResponse{
		ID:           a.ID,
		ReportID:     a.ReportID,
		AlertType:    a.AlertType,
		DisasterType: string(a.DisasterType),
		Severity:     string(a.Severity),
		Description:  a.Description,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Location != nil {
		lat, lng := a.Location.Latitude, a.Location.Longitude
		resp.Latitude = &lat
		resp.Longitude = &lng
	}
	return resp
}

func ToAlertResponses(alerts []*entity.EmergencyAlert) []AlertResponse {
	responses := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		responses = append(responses, ToAlertResponse(a))
	}
	return responses
}

// AlertListResponse - ответ GET /alerts.
type AlertListResponse struct {
	Alerts []AlertResponse `json:"alerts"`
	Count  int             `json:"count"`
}

// DashboardStatsResponse - ответ GET /dashboard/stats.
type DashboardStatsResponse struct {
	TotalReports    int              `json:"total_reports"`
	PendingReports  int              `json:"pending_reports"`
	ResolvedReports int              `json:"resolved_reports"`
	CriticalReports int              `json:"critical_reports"`
	ByStatus        map[string]int   `json:"by_status"`
	BySeverity      map[string]int   `json:"by_severity"`
	ByDisasterType  map[string]int   `json:"by_disaster_type"`
	RecentReports   []ReportResponse `json:"recent_reports"`
	Truncated       bool             `json:"truncated"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

func ToDashboardStatsResponse(s *query.DashboardStats) DashboardStatsResponse {
	resp := DashboardStatsResponse{
		TotalReports:    s.TotalReports,
		PendingReports:  s.PendingReports,
		ResolvedReports: s.ResolvedReports,
		CriticalReports: s.CriticalReports,
		ByStatus:        make(map[string]int, len(s.ByStatus)),
		BySeverity:      make(map[string]int, len(s.BySeverity)),
		ByDisasterType:  make(map[string]int, len(s.ByDisasterType)),
		RecentReports:   ToReportResponses(s.RecentReports),
		Truncated:       s.Truncated,
		GeneratedAt:     s.GeneratedAt,
	}
	for k, v := range s.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	for k, v := range s.BySeverity {
		resp.BySeverity[string(k)] = v
	}
	for k, v := range s.ByDisasterType {
		resp.ByDisasterType[string(k)] = v
	}
	return resp
}

// HealthResponse - ответ GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// WSMessage - сообщение live-ленты: type содержит имя события, data полезную нагрузку.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
