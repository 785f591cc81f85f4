package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

// DefaultReporterName подставляется, если платформа не сообщила имя пользователя.
const DefaultReporterName = "Anonymous"

type Report struct {
	ID           string
	ReporterID   string
	ReporterName string
	DisasterType valueobject.DisasterType
	Severity     valueobject.Severity
	Location     *valueobject.Location
	Description  string
	Photos       []string
	Status       valueobject.ReportStatus
	Source       valueobject.ReportSource
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewReportID генерирует короткий идентификатор отчёта: 8 hex-символов в верхнем регистре.
func NewReportID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewReport собирает отчёт в статусе Pending. Поля должны быть уже провалидированы.
func NewReport(
	reporterID, reporterName string,
	disasterType valueobject.DisasterType,
	severity valueobject.Severity,
	location *valueobject.Location,
	description string,
	photos []string,
	source valueobject.ReportSource,
) (*Report, error) {
	if strings.TrimSpace(reporterID) == "" {
		return nil, apperror.Validation("не указан автор отчёта", "user_id")
	}
	if !disasterType.IsValid() {
		return nil, apperror.Validation("некорректный тип бедствия", "disaster_type")
	}
	if !severity.IsValid() {
		return nil, apperror.Validation("некорректный уровень опасности", "severity")
	}
	if !source.IsValid() {
		source = valueobject.ReportSourceAPI
	}
	if strings.TrimSpace(reporterName) == "" {
		reporterName = DefaultReporterName
	}

	now := time.Now().UTC()
	return &Report{
		ID:           NewReportID(),
		ReporterID:   reporterID,
		ReporterName: reporterName,
		DisasterType: disasterType,
		Severity:     severity,
		Location:     location,
		Description:  description,
		Photos:       append([]string{}, photos...),
		Status:       valueobject.ReportStatusPending,
		Source:       source,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ChangeStatus применяет переход статуса. Severity отчёта не меняется никогда.
func (r *Report) ChangeStatus(newStatus valueobject.ReportStatus) error {
	if !newStatus.IsValid() {
		return apperror.Validation("некорректный статус отчёта", "status")
	}
	if !r.Status.CanTransitionTo(newStatus) {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"невозможно перевести отчёт из статуса "+string(r.Status)+" в "+string(newStatus))
	}
	if r.Status == newStatus {
		return nil
	}
	r.Status = newStatus
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Report) HasLocation() bool {
	return r.Location != nil
}

// WithinRadius оставляет отчёты с координатами на расстоянии не больше radiusKm от center.
// limit <= 0 означает без ограничения. Порядок входного среза сохраняется.
func WithinRadius(reports []*Report, center valueobject.Location, radiusKm float64, limit int) []*Report {
	result := make([]*Report, 0)
	for _, r := range reports {
		if r == nil || r.Location == nil {
			continue
		}
		if center.DistanceKm(*r.Location) <= radiusKm {
			result = append(result, r)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}
