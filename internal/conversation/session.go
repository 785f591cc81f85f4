package conversation

import (
	"time"

	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
)

// Draft накапливает поля отчёта по ходу диалога.
type Draft struct {
	DisasterType valueobject.DisasterType
	Severity     valueobject.Severity
	Location     *valueobject.Location
	Description  string
	Photos       []string
}

func (d Draft) clone() Draft {
	c := d
	c.Photos = append([]string(nil), d.Photos...)
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	return c
}

// Session - состояние диалога одного пользователя. Живёт только в памяти.
type Session struct {
	UserID       string
	UserName     string
	ChatID       string
	Step         Step
	Flow         Flow
	Draft        Draft
	LastActivity time.Time
}

func (s *Session) reset() {
	s.Step = StepIdle
	s.Flow = FlowStandard
	s.Draft = Draft{}
}

func (s *Session) startStandard() {
	s.reset()
	s.Step = StepAwaitingDisasterType
}

func (s *Session) startEmergency() {
	s.reset()
	s.Flow = FlowEmergency
	s.Step = StepAwaitingLocation
	s.Draft.DisasterType = valueobject.DisasterEmergency
	s.Draft.Severity = valueobject.SeverityCritical
}

// expired: бездействие дольше idleTimeout внутри сценария.
func (s *Session) expired(now time.Time, idleTimeout time.Duration) bool {
	return s.Step.InFlow() && idleTimeout > 0 && now.Sub(s.LastActivity) > idleTimeout
}
