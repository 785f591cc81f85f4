package repository

import (
	"context"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
)

// ReportRepository хранит отчёты о бедствиях.
// Ошибки: apperror.ErrReportNotFound, VALIDATION_ERROR при нарушении ограничений,
// STORE_UNAVAILABLE при недоступности хранилища.
type ReportRepository interface {
	// Create возвращает apperror.ErrDuplicateID, если идентификатор уже занят.
	Create(ctx context.Context, report *entity.Report) error
	FindByID(ctx context.Context, id string) (*entity.Report, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]*entity.Report, error)
	// UpdateStatus меняет статус from -> to только если текущий статус равен from.
	// Иначе apperror.ErrReportStatusChanged (или ErrReportNotFound).
	UpdateStatus(ctx context.Context, id string, from, to valueobject.ReportStatus) (*entity.Report, error)
	// ListNear возвращает отчёты в радиусе radiusKm, отсортированные от новых к старым.
	ListNear(ctx context.Context, center valueobject.Location, radiusKm float64, limit int) ([]*entity.Report, error)
	Ping(ctx context.Context) error
}

// ReportFilter объединяет условия через AND. Пустое поле не фильтрует.
type ReportFilter struct {
	Severity     valueobject.Severity
	DisasterType valueobject.DisasterType
	Status       valueobject.ReportStatus
	Limit        int
}
