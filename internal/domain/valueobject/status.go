package valueobject

import (
	"strings"

	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "Pending"
	ReportStatusInProgress ReportStatus = "In Progress"
	ReportStatusResolved   ReportStatus = "Resolved"
	ReportStatusCancelled  ReportStatus = "Cancelled"
)

var reportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusInProgress,
	ReportStatusResolved,
	ReportStatusCancelled,
}

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusPending, ReportStatusInProgress, ReportStatusResolved, ReportStatusCancelled:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса нельзя перейти ни в какой другой.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusResolved || s == ReportStatusCancelled
}

// CanTransitionTo: переход в тот же статус разрешён как no-op,
// Cancelled достижим из любого нетерминального статуса.
func (s ReportStatus) CanTransitionTo(newStatus ReportStatus) bool {
	if s == newStatus {
		return true
	}
	transitions := map[ReportStatus][]ReportStatus{
		ReportStatusPending:    {ReportStatusInProgress, ReportStatusResolved, ReportStatusCancelled},
		ReportStatusInProgress: {ReportStatusResolved, ReportStatusCancelled},
		ReportStatusResolved:   {},
		ReportStatusCancelled:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// ReportStatuses возвращает все статусы в порядке жизненного цикла.
func ReportStatuses() []ReportStatus {
	return append([]ReportStatus(nil), reportStatuses...)
}

func NewReportStatus(status string) (ReportStatus, error) {
	key := normalizeKey(status)
	for _, s := range reportStatuses {
		if normalizeKey(string(s)) == key {
			return s, nil
		}
	}
	return "", apperror.Validation("некорректный статус отчёта", "status")
}

type AlertStatus string

const (
	AlertStatusOpen         AlertStatus = "Open"
	AlertStatusAcknowledged AlertStatus = "Acknowledged"
	AlertStatusClosed       AlertStatus = "Closed"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusOpen, AlertStatusAcknowledged, AlertStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo запрещает повторное открытие оповещения.
func (s AlertStatus) CanTransitionTo(newStatus AlertStatus) bool {
	if s == newStatus {
		return true
	}
	switch s {
	case AlertStatusOpen:
		return newStatus == AlertStatusAcknowledged || newStatus == AlertStatusClosed
	case AlertStatusAcknowledged:
		return newStatus == AlertStatusClosed
	}
	return false
}

func NewAlertStatus(status string) (AlertStatus, error) {
	key := normalizeKey(status)
	for _, s := range []AlertStatus{AlertStatusOpen, AlertStatusAcknowledged, AlertStatusClosed} {
		if normalizeKey(string(s)) == key {
			return s, nil
		}
	}
	return "", apperror.Validation("некорректный статус оповещения", "status")
}

type ReportSource string

const (
	ReportSourceBot ReportSource = "Bot"
	ReportSourceAPI ReportSource = "API"
)

func (s ReportSource) IsValid() bool {
	return s == ReportSourceBot || s == ReportSourceAPI
}

// normalizeKey приводит "in_progress", "InProgress" и "In Progress" к одному ключу.
func normalizeKey(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(v)
}
