package alert

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

// Notifier получает только что созданное оповещение.
// Ошибка нотификатора не отменяет оповещение и логируется как предупреждение.
type Notifier interface {
	Name() string
	NotifyAlert(ctx context.Context, alert *entity.EmergencyAlert) error
}

type Outcome string

const (
	OutcomeNotRequired   Outcome = "not_required"
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeFailed        Outcome = "failed"
)

// DispatchResult описывает, что произошло при оценке отчёта.
// Err всегда имеет код ALERT_DISPATCH_WARNING.
type DispatchResult struct {
	Outcome Outcome
	Alert   *entity.EmergencyAlert
	Err     error
}

// Dispatcher создаёт EmergencyAlert для критических отчётов.
type Dispatcher struct {
	alertRepo repository.AlertRepository
	notifiers []Notifier
}

func NewDispatcher(alertRepo repository.AlertRepository, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{alertRepo: alertRepo, notifiers: notifiers}
}

// Evaluate идемпотентен: повторный вызов для того же отчёта не создаёт второе оповещение.
func (d *Dispatcher) Evaluate(ctx context.Context, report *entity.Report) DispatchResult {
	if report == nil || !report.Severity.RequiresAlert() {
		return DispatchResult{Outcome: OutcomeNotRequired}
	}

	log := logger.Log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"severity":  report.Severity,
	})

	existing, err := d.alertRepo.FindAlertByReportID(ctx, report.ID)
	switch {
	case err == nil && existing != nil:
		return DispatchResult{Outcome: OutcomeAlreadyExists, Alert: existing}
	case err != nil && !apperror.IsNotFound(err):
		return d.fail(log, err, "не удалось проверить существующее оповещение")
	}

	alert, err := entity.NewEmergencyAlert(report)
	if err != nil {
		return d.fail(log, err, "не удалось сформировать оповещение")
	}

	if err := d.alertRepo.CreateAlert(ctx, alert); err != nil {
		if errors.Is(err, apperror.ErrAlertExists) {
			// параллельный вызов успел раньше, уникальность обеспечило хранилище
			existing, findErr := d.alertRepo.FindAlertByReportID(ctx, report.ID)
			if findErr != nil {
				return DispatchResult{Outcome: OutcomeAlreadyExists}
			}
			return DispatchResult{Outcome: OutcomeAlreadyExists, Alert: existing}
		}
		return d.fail(log, err, "не удалось сохранить оповещение")
	}

	log.WithField("alert_id", alert.ID).Info("Создано экстренное оповещение")
	d.notify(ctx, alert)

	return DispatchResult{Outcome: OutcomeCreated, Alert: alert}
}

func (d *Dispatcher) notify(ctx context.Context, alert *entity.EmergencyAlert) {
	for _, n := range d.notifiers {
		if err := n.NotifyAlert(ctx, alert); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"alert_id":  alert.ID,
				"report_id": alert.ReportID,
				"notifier":  n.Name(),
			}).WithError(err).Warn("Не удалось разослать оповещение")
		}
	}
}

func (d *Dispatcher) fail(log *logrus.Entry, err error, message string) DispatchResult {
	warning := apperror.Wrap(err, apperror.ErrCodeAlertDispatch, message)
	log.WithError(err).Warn(message)
	return DispatchResult{Outcome: OutcomeFailed, Err: warning}
}
