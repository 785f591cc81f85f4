package alert

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/validation"
)

const DefaultListLimit = 50

type ListAlertsInput struct {
	Status string
	Limit  int
}

type ListAlertsUseCase struct {
	alertRepo repository.AlertRepository
}

func NewListAlertsUseCase(alertRepo repository.AlertRepository) *ListAlertsUseCase {
	return &ListAlertsUseCase{alertRepo: alertRepo}
}

func (uc *ListAlertsUseCase) Execute(ctx context.Context, input ListAlertsInput) ([]*entity.EmergencyAlert, error) {
	filter := repository.AlertFilter{Limit: validation.ClampLimit(input.Limit, DefaultListLimit)}
	if input.Status != "" {
		status, err := valueobject.NewAlertStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	return uc.alertRepo.ListAlerts(ctx, filter)
}

type GetAlertUseCase struct {
	alertRepo repository.AlertRepository
}

func NewGetAlertUseCase(alertRepo repository.AlertRepository) *GetAlertUseCase {
	return &GetAlertUseCase{alertRepo: alertRepo}
}

func (uc *GetAlertUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.EmergencyAlert, error) {
	return uc.alertRepo.FindAlertByID(ctx, id)
}

// ChangeAlertStatusUseCase ведёт оповещение Open → Acknowledged → Closed.
type ChangeAlertStatusUseCase struct {
	alertRepo repository.AlertRepository
}

func NewChangeAlertStatusUseCase(alertRepo repository.AlertRepository) *ChangeAlertStatusUseCase {
	return &ChangeAlertStatusUseCase{alertRepo: alertRepo}
}

func (uc *ChangeAlertStatusUseCase) Execute(ctx context.Context, id uuid.UUID, status string) (*entity.EmergencyAlert, error) {
	newStatus, err := valueobject.NewAlertStatus(status)
	if err != nil {
		return nil, err
	}

	alert, err := uc.alertRepo.FindAlertByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if alert.Status == newStatus {
		return alert, nil
	}
	oldStatus := alert.Status
	if err := alert.ChangeStatus(newStatus); err != nil {
		return nil, err
	}

	return uc.alertRepo.UpdateAlertStatus(ctx, id, oldStatus, newStatus)
}
