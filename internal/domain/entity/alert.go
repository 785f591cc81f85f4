package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

// AlertTypeCriticalReport - тип оповещения, создаваемого по критическому отчёту.
const AlertTypeCriticalReport = "Critical Disaster Report"

// EmergencyAlert - снимок отчёта на момент эскалации.
// Последующие изменения отчёта на оповещение не влияют.
type EmergencyAlert struct {
	ID           uuid.UUID
	ReportID     string
	AlertType    string
	DisasterType valueobject.DisasterType
	Severity     valueobject.Severity
	Location     *valueobject.Location
	Description  string
	Status       valueobject.AlertStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewEmergencyAlert(report *Report) (*EmergencyAlert, error) {
	if report == nil || report.ID == "" {
		return nil, apperror.Validation("оповещение требует отчёт", "report_id")
	}

	var location *valueobject.Location
	if report.Location != nil {
		loc := *report.Location
		location = &loc
	}

	now := time.Now().UTC()
	return &EmergencyAlert{
		ID:           uuid.New(),
		ReportID:     report.ID,
		AlertType:    AlertTypeCriticalReport,
		DisasterType: report.DisasterType,
		Severity:     report.Severity,
		Location:     location,
		Description:  report.Description,
		Status:       valueobject.AlertStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (a *EmergencyAlert) ChangeStatus(newStatus valueobject.AlertStatus) error {
	if !newStatus.IsValid() {
		return apperror.Validation("некорректный статус оповещения", "status")
	}
	if !a.Status.CanTransitionTo(newStatus) {
		return apperror.New(apperror.ErrCodeInvalidTransition,
			"невозможно перевести оповещение из статуса "+string(a.Status)+" в "+string(newStatus))
	}
	if a.Status == newStatus {
		return nil
	}
	a.Status = newStatus
	a.UpdatedAt = time.Now().UTC()
	return nil
}
