package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
)

type AlertRepository interface {
	// CreateAlert возвращает apperror.ErrAlertExists, если для отчёта оповещение уже есть.
	CreateAlert(ctx context.Context, alert *entity.EmergencyAlert) error
	FindAlertByReportID(ctx context.Context, reportID string) (*entity.EmergencyAlert, error)
	FindAlertByID(ctx context.Context, id uuid.UUID) (*entity.EmergencyAlert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*entity.EmergencyAlert, error)
	// UpdateAlertStatus работает как compare-and-set: apperror.ErrAlertStatusChanged,
	// если текущий статус уже не from.
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, from, to valueobject.AlertStatus) (*entity.EmergencyAlert, error)
}

type AlertFilter struct {
	Status valueobject.AlertStatus
	Limit  int
}
