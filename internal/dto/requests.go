package dto

// CreateReportRequest - тело POST /reports.
// Обязательность полей проверяет use case, чтобы вернуть полный список ошибок.
type CreateReportRequest struct {
	UserID       string   `json:"user_id"`
	Username     string   `json:"username"`
	DisasterType string   `json:"disaster_type"`
	Severity     string   `json:"severity"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Description  string   `json:"description"`
	Photos       []string `json:"photos"`
}

// UpdateStatusRequest - тело PUT /reports/:id/status и PUT /alerts/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
