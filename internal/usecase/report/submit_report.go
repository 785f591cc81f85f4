package report

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
	"github.com/ignatzorin/disaster-backend/internal/usecase/alert"
	"github.com/ignatzorin/disaster-backend/internal/validation"
)

// maxIDAttempts ограничивает перегенерацию короткого идентификатора при коллизии.
const maxIDAttempts = 5

// AlertEvaluator вызывается после успешной записи отчёта.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, report *entity.Report) alert.DispatchResult
}

// CacheInvalidator сбрасывает агрегаты после изменения отчётов.
type CacheInvalidator interface {
	InvalidateReportCache()
}

type SubmitReportInput struct {
	ReporterID   string
	ReporterName string
	DisasterType string
	Severity     string
	Latitude     *float64
	Longitude    *float64
	Description  string
	Photos       []string
	Source       valueobject.ReportSource
	// LocationDeferred разрешает отчёт без координат.
	LocationDeferred bool
}

type SubmitReportUseCase struct {
	reportRepo repository.ReportRepository
	evaluator  AlertEvaluator
	cache      CacheInvalidator
}

func NewSubmitReportUseCase(reportRepo repository.ReportRepository, evaluator AlertEvaluator, cache CacheInvalidator) *SubmitReportUseCase {
	return &SubmitReportUseCase{reportRepo: reportRepo, evaluator: evaluator, cache: cache}
}

// Execute проверяет черновик, сохраняет отчёт и синхронно передаёт его диспетчеру оповещений.
// Результат диспетчера только логируется.
func (uc *SubmitReportUseCase) Execute(ctx context.Context, input SubmitReportInput) (*entity.Report, error) {
	fields, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	report, err := entity.NewReport(
		fields.reporterID,
		validation.SanitizeText(input.ReporterName),
		fields.disasterType,
		fields.severity,
		fields.location,
		validation.SanitizeText(input.Description),
		fields.photos,
		input.Source,
	)
	if err != nil {
		return nil, err
	}

	if err := uc.create(ctx, report); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": report.ReporterID,
		}).WithError(err).Error("Не удалось сохранить отчёт")
		return nil, err
	}

	log := logger.Log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"user_id":   report.ReporterID,
		"severity":  report.Severity,
		"source":    report.Source,
	})
	log.Info("Отчёт создан")

	if uc.cache != nil {
		uc.cache.InvalidateReportCache()
	}

	if uc.evaluator != nil {
		// Сбой оповещения уже залогирован диспетчером.
		result := uc.evaluator.Evaluate(ctx, report)
		if result.Err == nil && result.Outcome != alert.OutcomeNotRequired {
			log.WithField("outcome", result.Outcome).Info("Отчёт передан диспетчеру оповещений")
		}
	}

	return report, nil
}

func (uc *SubmitReportUseCase) create(ctx context.Context, report *entity.Report) error {
	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		if attempt > 0 {
			report.ID = entity.NewReportID()
		}
		err = uc.reportRepo.Create(ctx, report)
		if !errors.Is(err, apperror.ErrDuplicateID) {
			return err
		}
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось подобрать уникальный идентификатор отчёта")
}

type validatedFields struct {
	reporterID   string
	disasterType valueobject.DisasterType
	severity     valueobject.Severity
	location     *valueobject.Location
	photos       []string
}

// validateInput собирает все ошибки сразу, чтобы клиент увидел полный список полей.
func validateInput(input SubmitReportInput) (validatedFields, error) {
	var (
		out     validatedFields
		invalid []string
	)

	out.reporterID = strings.TrimSpace(input.ReporterID)
	if out.reporterID == "" || validation.ValidateLength("user_id", out.reporterID, 0, validation.MaxReporterIDLength) != nil {
		invalid = append(invalid, "user_id")
	}

	if strings.TrimSpace(input.DisasterType) == "" {
		invalid = append(invalid, "disaster_type")
	} else if t, err := valueobject.NewDisasterType(input.DisasterType); err != nil {
		invalid = append(invalid, "disaster_type")
	} else {
		out.disasterType = t
	}

	if strings.TrimSpace(input.Severity) == "" {
		invalid = append(invalid, "severity")
	} else if s, err := valueobject.NewSeverity(input.Severity); err != nil {
		invalid = append(invalid, "severity")
	} else {
		out.severity = s
	}

	switch {
	case input.Latitude == nil && input.Longitude == nil:
		if !input.LocationDeferred {
			invalid = append(invalid, "latitude", "longitude")
		}
	case input.Latitude == nil:
		invalid = append(invalid, "latitude")
	case input.Longitude == nil:
		invalid = append(invalid, "longitude")
	default:
		loc, err := valueobject.NewLocation(*input.Latitude, *input.Longitude)
		if err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				invalid = append(invalid, appErr.Fields...)
			}
		} else {
			out.location = &loc
		}
	}

	if validation.ValidateDescription(input.Description) != nil {
		invalid = append(invalid, "description")
	}
	if validation.ValidateLength("username", input.ReporterName, 0, validation.MaxReporterNameLength) != nil {
		invalid = append(invalid, "username")
	}

	out.photos = make([]string, 0, len(input.Photos))
	for _, p := range input.Photos {
		out.photos = append(out.photos, strings.TrimSpace(p))
	}
	if validation.ValidatePhotos(out.photos) != nil {
		invalid = append(invalid, "photos")
	}

	if len(invalid) > 0 {
		return validatedFields{}, apperror.Validation("отсутствуют или некорректны поля", invalid...)
	}
	return out, nil
}
