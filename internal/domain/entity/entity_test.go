package entity_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

func newReport(t *testing.T, severity valueobject.Severity, loc *valueobject.Location) *entity.Report {
	t.Helper()
	r, err := entity.NewReport("42", "", valueobject.DisasterFire, severity, loc, "smoke", nil, "")
	require.NoError(t, err)
	return r
}

func location(t *testing.T, lat, lng float64) *valueobject.Location {
	t.Helper()
	loc, err := valueobject.NewLocation(lat, lng)
	require.NoError(t, err)
	return &loc
}

func TestNewReportID(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := entity.NewReportID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestNewReport_Defaults(t *testing.T) {
	r := newReport(t, valueobject.SeverityHigh, nil)

	assert.Equal(t, valueobject.ReportStatusPending, r.Status)
	assert.Equal(t, valueobject.ReportSourceAPI, r.Source)
	assert.Equal(t, entity.DefaultReporterName, r.ReporterName)
	assert.NotNil(t, r.Photos)
	assert.False(t, r.HasLocation())
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)
}

func TestNewReport_RejectsInvalid(t *testing.T) {
	_, err := entity.NewReport(" ", "a", valueobject.DisasterFire, valueobject.SeverityLow, nil, "", nil, valueobject.ReportSourceBot)
	assert.True(t, apperror.IsValidation(err))

	_, err = entity.NewReport("1", "a", "Meteor", valueobject.SeverityLow, nil, "", nil, valueobject.ReportSourceBot)
	assert.True(t, apperror.IsValidation(err))

	_, err = entity.NewReport("1", "a", valueobject.DisasterFire, "Extreme", nil, "", nil, valueobject.ReportSourceBot)
	assert.True(t, apperror.IsValidation(err))
}

func TestReport_ChangeStatus(t *testing.T) {
	r := newReport(t, valueobject.SeverityCritical, nil)
	created := r.UpdatedAt

	require.NoError(t, r.ChangeStatus(valueobject.ReportStatusInProgress))
	assert.Equal(t, valueobject.ReportStatusInProgress, r.Status)
	assert.False(t, r.UpdatedAt.Before(created))
	assert.Equal(t, valueobject.SeverityCritical, r.Severity)

	require.NoError(t, r.ChangeStatus(valueobject.ReportStatusInProgress))

	err := r.ChangeStatus(valueobject.ReportStatusPending)
	assert.True(t, apperror.IsInvalidTransition(err))

	err = r.ChangeStatus("Archived")
	assert.True(t, apperror.IsValidation(err))
}

func TestNewEmergencyAlert_Snapshot(t *testing.T) {
	r := newReport(t, valueobject.SeverityCritical, location(t, 13.08, 80.27))

	a, err := entity.NewEmergencyAlert(r)
	require.NoError(t, err)
	assert.Equal(t, r.ID, a.ReportID)
	assert.Equal(t, entity.AlertTypeCriticalReport, a.AlertType)
	assert.Equal(t, valueobject.AlertStatusOpen, a.Status)

	// Изменения отчёта не затрагивают снимок.
	r.Location.Latitude = 0
	r.Description = "changed"
	assert.Equal(t, 13.08, a.Location.Latitude)
	assert.Equal(t, "smoke", a.Description)

	_, err = entity.NewEmergencyAlert(nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestEmergencyAlert_ChangeStatus(t *testing.T) {
	a, err := entity.NewEmergencyAlert(newReport(t, valueobject.SeverityCritical, nil))
	require.NoError(t, err)

	require.NoError(t, a.ChangeStatus(valueobject.AlertStatusClosed))
	assert.True(t, apperror.IsInvalidTransition(a.ChangeStatus(valueobject.AlertStatusOpen)))
}

func TestWithinRadius(t *testing.T) {
	center := location(t, 13.0827, 80.2707)
	near := newReport(t, valueobject.SeverityLow, location(t, 13.09, 80.28))
	far := newReport(t, valueobject.SeverityLow, location(t, 28.6139, 77.2090))
	noLoc := newReport(t, valueobject.SeverityLow, nil)
	near2 := newReport(t, valueobject.SeverityLow, location(t, 13.07, 80.26))

	got := entity.WithinRadius([]*entity.Report{near, far, noLoc, nil, near2}, *center, 10, 0)
	assert.Equal(t, []*entity.Report{near, near2}, got)

	got = entity.WithinRadius([]*entity.Report{near, far, near2}, *center, 10, 1)
	assert.Equal(t, []*entity.Report{near}, got)

	assert.Empty(t, entity.WithinRadius(nil, *center, 10, 0))
}
