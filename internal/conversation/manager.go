package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
	"github.com/ignatzorin/disaster-backend/internal/usecase/report"
	"github.com/ignatzorin/disaster-backend/internal/validation"
)

// statusReportsLimit - сколько последних отчётов показывать по /status.
const statusReportsLimit = 5

type Submitter interface {
	Execute(ctx context.Context, input report.SubmitReportInput) (*entity.Report, error)
}

type ReportLister interface {
	Execute(ctx context.Context, userID string, limit int) ([]*entity.Report, error)
}

// Manager ведёт диалоги пользователей и передаёт готовые черновики в Submitter.
type Manager struct {
	store       *Store
	submitter   Submitter
	lister      ReportLister
	idleTimeout time.Duration
	now         func() time.Time
}

type Option func(*Manager)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store *Store, submitter Submitter, lister ReportLister, idleTimeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		submitter:   submitter,
		lister:      lister,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// outcome - то, что нужно сделать после снятия блокировки пользователя.
type outcome struct {
	replies    []Reply
	submit     *report.SubmitReportInput
	listReport bool
}

// Handle продвигает диалог пользователя и возвращает ответы.
// Блокирующие вызовы (отправка отчёта, список отчётов) выполняются после снятия блокировки.
func (m *Manager) Handle(ctx context.Context, ev Event) []Reply {
	if strings.TrimSpace(ev.UserID) == "" {
		return nil
	}

	e := m.store.acquire(ev.UserID)
	sess := e.session
	if ev.UserName != "" {
		sess.UserName = ev.UserName
	}
	if ev.ChatID != "" {
		sess.ChatID = ev.ChatID
	}

	now := m.now()
	expired := sess.expired(now, m.idleTimeout)
	if expired {
		logger.Log.WithFields(logrus.Fields{
			"user_id": ev.UserID,
			"step":    sess.Step.String(),
		}).Info("Сессия сброшена по неактивности")
		sess.reset()
	}

	out := m.advance(sess, ev, expired)
	sess.LastActivity = now
	m.store.release(ev.UserID, e)

	replies := out.replies
	if out.submit != nil {
		replies = append(replies, m.submit(ctx, *out.submit))
	}
	if out.listReport {
		replies = append(replies, m.listReports(ctx, ev.UserID))
	}
	return replies
}

func (m *Manager) advance(sess *Session, ev Event, expired bool) outcome {
	cmd, isCommand := commandOf(ev)
	if isCommand {
		if out, handled := m.handleCommand(sess, cmd, expired); handled {
			return out
		}
	}

	switch sess.Step {
	case StepAwaitingDisasterType:
		return m.onDisasterType(sess, ev)
	case StepAwaitingSeverity:
		return m.onSeverity(sess, ev)
	case StepAwaitingLocation:
		return m.onLocation(sess, ev)
	case StepAwaitingDescription:
		return m.onDescription(sess, ev, cmd)
	case StepAwaitingPhotos:
		return m.onPhotos(sess, ev, cmd)
	}

	if expired || ev.Kind == EventChoice || ev.Kind == EventLocation || ev.Kind == EventPhoto || isCommand {
		return outcome{replies: []Reply{textReply(textSessionExpired)}}
	}
	return outcome{replies: []Reply{textReply(textIdleHint)}}
}

// commandOf распознаёт и команды, и подписи кнопок.
func commandOf(ev Event) (string, bool) {
	switch ev.Kind {
	case EventCommand:
		return strings.ToLower(strings.TrimSpace(ev.Text)), true
	case EventText:
		return CommandFromLabel(ev.Text)
	}
	return "", false
}

// handleCommand обрабатывает глобальные команды. Управляющие команды шага
// (skip, submit) возвращают handled=false и разбираются обработчиком шага.
func (m *Manager) handleCommand(sess *Session, cmd string, expired bool) (outcome, bool) {
	switch cmd {
	case CommandStart:
		sess.reset()
		return outcome{replies: []Reply{welcomeReply()}}, true
	case CommandHelp:
		return outcome{replies: []Reply{helpReply()}}, true
	case CommandStatus:
		return outcome{listReport: true}, true
	case CommandReport:
		sess.startStandard()
		return outcome{replies: []Reply{disasterTypeReply()}}, true
	case CommandEmergency:
		sess.startEmergency()
		return outcome{replies: []Reply{emergencyReply()}}, true
	case CommandCancel:
		if sess.Step.InFlow() {
			sess.reset()
			return outcome{replies: []Reply{cancelledReply()}}, true
		}
		if expired {
			return outcome{replies: []Reply{textReply(textSessionExpired)}}, true
		}
		return outcome{replies: []Reply{textReply(textNothingToCancel)}}, true
	}
	return outcome{}, false
}

func (m *Manager) onDisasterType(sess *Session, ev Event) outcome {
	raw, ok := selection(ev, choiceTypePrefix)
	if ok {
		if t, err := valueobject.NewDisasterType(raw); err == nil && t != valueobject.DisasterEmergency {
			sess.Draft.DisasterType = t
			sess.Step = StepAwaitingSeverity
			return outcome{replies: []Reply{severityReply(t)}}
		}
	}
	return outcome{replies: []Reply{disasterTypeReply()}}
}

func (m *Manager) onSeverity(sess *Session, ev Event) outcome {
	raw, ok := selection(ev, choiceSeverityPrefix)
	if ok {
		if s, err := valueobject.NewSeverity(raw); err == nil {
			sess.Draft.Severity = s
			sess.Step = StepAwaitingLocation
			return outcome{replies: locationReplies(sess.Draft)}
		}
	}
	return outcome{replies: []Reply{severityReply(sess.Draft.DisasterType)}}
}

func (m *Manager) onLocation(sess *Session, ev Event) outcome {
	if ev.Kind != EventLocation {
		if sess.Flow == FlowEmergency {
			return outcome{replies: []Reply{emergencyReply()}}
		}
		return outcome{replies: locationReplies(sess.Draft)[1:]}
	}

	loc, err := valueobject.NewLocation(ev.Latitude, ev.Longitude)
	if err != nil {
		return outcome{replies: []Reply{{Text: textBadLocation, RequestLocation: true}}}
	}
	sess.Draft.Location = &loc

	if sess.Flow == FlowEmergency {
		return m.complete(sess)
	}
	sess.Step = StepAwaitingDescription
	return outcome{replies: []Reply{descriptionReply()}}
}

func (m *Manager) onDescription(sess *Session, ev Event, cmd string) outcome {
	switch {
	case cmd == CommandSkipDescription:
		sess.Draft.Description = ""
	case ev.Kind == EventText && cmd == "" && strings.TrimSpace(ev.Text) != "":
		description := validation.SanitizeText(ev.Text)
		if validation.ValidateDescription(description) != nil {
			return outcome{replies: []Reply{textReply("❌ Description is too long. Please shorten it or click 'Skip Description'.")}}
		}
		sess.Draft.Description = description
	default:
		return outcome{replies: []Reply{descriptionReply()}}
	}

	sess.Step = StepAwaitingPhotos
	return outcome{replies: []Reply{photosReply()}}
}

func (m *Manager) onPhotos(sess *Session, ev Event, cmd string) outcome {
	switch {
	case cmd == CommandSkipPhotos || cmd == CommandSubmit:
		return m.complete(sess)
	case ev.Kind == EventPhoto && strings.TrimSpace(ev.PhotoRef) != "":
		if len(sess.Draft.Photos) >= validation.MaxPhotosCount {
			return outcome{replies: []Reply{textReply(textPhotoLimit)}}
		}
		sess.Draft.Photos = append(sess.Draft.Photos, strings.TrimSpace(ev.PhotoRef))
		return outcome{replies: []Reply{photoReceivedReply(len(sess.Draft.Photos))}}
	}
	return outcome{replies: []Reply{photosReply()}}
}

// complete отдаёт копию черновика на отправку и сразу возвращает сессию в Idle.
func (m *Manager) complete(sess *Session) outcome {
	sess.Step = StepComplete
	draft := sess.Draft.clone()

	input := report.SubmitReportInput{
		ReporterID:   sess.UserID,
		ReporterName: sess.UserName,
		DisasterType: string(draft.DisasterType),
		Severity:     string(draft.Severity),
		Description:  draft.Description,
		Photos:       draft.Photos,
		Source:       valueobject.ReportSourceBot,
	}
	if draft.Location != nil {
		lat, lng := draft.Location.Latitude, draft.Location.Longitude
		input.Latitude = &lat
		input.Longitude = &lng
	}

	sess.reset()
	return outcome{submit: &input}
}

func (m *Manager) submit(ctx context.Context, input report.SubmitReportInput) Reply {
	created, err := m.submitter.Execute(ctx, input)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": input.ReporterID,
		}).WithError(err).Error("Не удалось отправить отчёт из диалога")

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == apperror.ErrCodeValidation && len(appErr.Fields) > 0 {
			return Reply{
				Text:     "❌ Report is incomplete (" + strings.Join(appErr.Fields, ", ") + "). Please start again with /report",
				Keyboard: mainMenuKeyboard(),
			}
		}
		return Reply{Text: textSubmitFailed, Keyboard: mainMenuKeyboard()}
	}
	return submittedReply(created)
}

func (m *Manager) listReports(ctx context.Context, userID string) Reply {
	if m.lister == nil {
		return textReply(textReportsFailed)
	}
	reports, err := m.lister.Execute(ctx, userID, statusReportsLimit)
	if err != nil {
		logger.Log.WithField("user_id", userID).WithError(err).Error("Не удалось получить отчёты пользователя")
		return textReply(textReportsFailed)
	}
	return reportsReply(reports)
}

// selection извлекает значение из нажатой кнопки с префиксом или из набранного текста.
func selection(ev Event, prefix string) (string, bool) {
	switch ev.Kind {
	case EventChoice:
		if strings.HasPrefix(ev.Text, prefix) {
			return strings.TrimPrefix(ev.Text, prefix), true
		}
	case EventText:
		if text := strings.TrimSpace(ev.Text); text != "" {
			return text, true
		}
	}
	return "", false
}
