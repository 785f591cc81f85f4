package report

import (
	"context"
	"strings"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

type GetReportUseCase struct {
	reportRepo repository.ReportRepository
}

func NewGetReportUseCase(reportRepo repository.ReportRepository) *GetReportUseCase {
	return &GetReportUseCase{reportRepo: reportRepo}
}

func (uc *GetReportUseCase) Execute(ctx context.Context, id string) (*entity.Report, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil, apperror.Validation("не указан идентификатор отчёта", "id")
	}
	return uc.reportRepo.FindByID(ctx, id)
}
