// Package memstore - потокобезопасные in-memory репозитории отчётов и оповещений.
// Используются в тестах вместо PostgreSQL и повторяют его ограничения:
// уникальность id отчёта и report_id оповещения.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/repository"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

type Store struct {
	mu      sync.RWMutex
	reports map[string]*entity.Report
	alerts  map[uuid.UUID]*entity.EmergencyAlert
	// seq упорядочивает отчёты с одинаковым created_at
	seq   map[string]int
	next  int
	fail  error
	calls map[string]int
}

func New() *Store {
	return &Store{
		reports: make(map[string]*entity.Report),
		alerts:  make(map[uuid.UUID]*entity.EmergencyAlert),
		seq:     make(map[string]int),
		calls:   make(map[string]int),
	}
}

// FailWith заставляет все операции возвращать err (nil снимает сбой).
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Calls возвращает число вызовов операции.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

func (s *Store) begin(op string) error {
	s.calls[op]++
	return s.fail
}

func (s *Store) ReportCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func (s *Store) AlertCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

func (s *Store) Create(ctx context.Context, report *entity.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("Create"); err != nil {
		return err
	}
	if _, exists := s.reports[report.ID]; exists {
		return apperror.ErrDuplicateID
	}
	s.reports[report.ID] = cloneReport(report)
	s.seq[report.ID] = s.next
	s.next++
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*entity.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("FindByID"); err != nil {
		return nil, err
	}
	r, ok := s.reports[id]
	if !ok {
		return nil, apperror.ErrReportNotFound
	}
	return cloneReport(r), nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("ListByUser"); err != nil {
		return nil, err
	}
	return s.collect(func(r *entity.Report) bool { return r.ReporterID == userID }, limit), nil
}

func (s *Store) List(ctx context.Context, filter repository.ReportFilter) ([]*entity.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("List"); err != nil {
		return nil, err
	}
	return s.collect(func(r *entity.Report) bool {
		return (filter.Severity == "" || r.Severity == filter.Severity) &&
			(filter.DisasterType == "" || r.DisasterType == filter.DisasterType) &&
			(filter.Status == "" || r.Status == filter.Status)
	}, filter.Limit), nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from, to valueobject.ReportStatus) (*entity.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("UpdateStatus"); err != nil {
		return nil, err
	}
	r, ok := s.reports[id]
	if !ok {
		return nil, apperror.ErrReportNotFound
	}
	if r.Status != from {
		return nil, apperror.ErrReportStatusChanged
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return cloneReport(r), nil
}

func (s *Store) ListNear(ctx context.Context, center valueobject.Location, radiusKm float64, limit int) ([]*entity.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("ListNear"); err != nil {
		return nil, err
	}
	all := s.collect(func(*entity.Report) bool { return true }, 0)
	return entity.WithinRadius(all, center, radiusKm, limit), nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin("Ping")
}

func (s *Store) CreateAlert(ctx context.Context, alert *entity.EmergencyAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateAlert"); err != nil {
		return err
	}
	for _, existing := range s.alerts {
		if existing.ReportID == alert.ReportID {
			return apperror.ErrAlertExists
		}
	}
	copied := *alert
	s.alerts[alert.ID] = &copied
	return nil
}

func (s *Store) FindAlertByReportID(ctx context.Context, reportID string) (*entity.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("FindAlertByReportID"); err != nil {
		return nil, err
	}
	for _, a := range s.alerts {
		if a.ReportID == reportID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperror.ErrAlertNotFound
}

func (s *Store) FindAlertByID(ctx context.Context, id uuid.UUID) (*entity.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("FindAlertByID"); err != nil {
		return nil, err
	}
	a, ok := s.alerts[id]
	if !ok {
		return nil, apperror.ErrAlertNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *Store) ListAlerts(ctx context.Context, filter repository.AlertFilter) ([]*entity.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("ListAlerts"); err != nil {
		return nil, err
	}
	result := make([]*entity.EmergencyAlert, 0)
	for _, a := range s.alerts {
		if filter.Status == "" || a.Status == filter.Status {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) UpdateAlertStatus(ctx context.Context, id uuid.UUID, from, to valueobject.AlertStatus) (*entity.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("UpdateAlertStatus"); err != nil {
		return nil, err
	}
	a, ok := s.alerts[id]
	if !ok {
		return nil, apperror.ErrAlertNotFound
	}
	if a.Status != from {
		return nil, apperror.ErrAlertStatusChanged
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	copied := *a
	return &copied, nil
}

// collect возвращает копии подходящих отчётов от новых к старым.
func (s *Store) collect(match func(*entity.Report) bool, limit int) []*entity.Report {
	result := make([]*entity.Report, 0)
	for _, r := range s.reports {
		if match(r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return s.seq[result[i].ID] > s.seq[result[j].ID]
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	for i, r := range result {
		result[i] = cloneReport(r)
	}
	return result
}

func cloneReport(r *entity.Report) *entity.Report {
	copied := *r
	copied.Photos = append([]string{}, r.Photos...)
	if r.Location != nil {
		loc := *r.Location
		copied.Location = &loc
	}
	return &copied
}

var (
	_ repository.ReportRepository = (*Store)(nil)
	_ repository.AlertRepository  = (*Store)(nil)
)
