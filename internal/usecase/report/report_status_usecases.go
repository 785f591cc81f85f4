package report

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/logger"
)

type ChangeStatusUseCase struct {
	reportRepo repository.ReportRepository
	cache      CacheInvalidator
}

func NewChangeStatusUseCase(reportRepo repository.ReportRepository, cache CacheInvalidator) *ChangeStatusUseCase {
	return &ChangeStatusUseCase{reportRepo: reportRepo, cache: cache}
}

// Execute переводит отчёт в новый статус. Из Resolved и Cancelled выйти нельзя,
// переход в текущий статус ничего не меняет.
func (uc *ChangeStatusUseCase) Execute(ctx context.Context, id string, status string) (*entity.Report, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	newStatus, err := valueobject.NewReportStatus(status)
	if err != nil {
		return nil, err
	}

	report, err := uc.reportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if report.Status == newStatus {
		return report, nil
	}

	oldStatus := report.Status
	if err := report.ChangeStatus(newStatus); err != nil {
		return nil, err
	}

	updated, err := uc.reportRepo.UpdateStatus(ctx, id, oldStatus, newStatus)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		uc.cache.InvalidateReportCache()
	}

	logger.Log.WithFields(logrus.Fields{
		"report_id": id,
		"from":      oldStatus,
		"to":        newStatus,
	}).Info("Статус отчёта изменён")

	return updated, nil
}
