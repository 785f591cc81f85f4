package report_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/infrastructure/persistence/memstore"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
	"github.com/ignatzorin/disaster-backend/internal/usecase/alert"
	"github.com/ignatzorin/disaster-backend/internal/usecase/report"
)

type countingCache struct {
	invalidations int
}

func (c *countingCache) InvalidateReportCache() {
	c.invalidations++
}

// duplicateOnceStore отдаёт ErrDuplicateID на первую вставку.
type duplicateOnceStore struct {
	*memstore.Store
	failed bool
}

func (s *duplicateOnceStore) Create(ctx context.Context, r *entity.Report) error {
	if !s.failed {
		s.failed = true
		return apperror.ErrDuplicateID
	}
	return s.Store.Create(ctx, r)
}

func floatPtr(v float64) *float64 {
	return &v
}

func validInput() report.SubmitReportInput {
	return report.SubmitReportInput{
		ReporterID:   "42",
		ReporterName: "alice",
		DisasterType: "Flood",
		Severity:     "High",
		Latitude:     floatPtr(12.9),
		Longitude:    floatPtr(77.6),
		Description:  "water rising",
		Photos:       []string{"file-1", "file-2"},
		Source:       valueobject.ReportSourceAPI,
	}
}

func newSubmit(store *memstore.Store, cache report.CacheInvalidator) *report.SubmitReportUseCase {
	return report.NewSubmitReportUseCase(store, alert.NewDispatcher(store), cache)
}

func TestSubmitReport_RoundTrip(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	cache := &countingCache{}
	input := validInput()

	created, err := newSubmit(store, cache).Execute(context.Background(), input)
	require.NoError(t, err)

	fetched, err := report.NewGetReportUseCase(store).Execute(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Len(t, fetched.ID, 8)
	assert.Regexp(t, "^[0-9A-F]{8}$", fetched.ID)
	assert.Equal(t, input.ReporterID, fetched.ReporterID)
	assert.Equal(t, input.ReporterName, fetched.ReporterName)
	assert.Equal(t, valueobject.DisasterFlood, fetched.DisasterType)
	assert.Equal(t, valueobject.SeverityHigh, fetched.Severity)
	require.NotNil(t, fetched.Location)
	assert.Equal(t, 12.9, fetched.Location.Latitude)
	assert.Equal(t, 77.6, fetched.Location.Longitude)
	assert.Equal(t, input.Description, fetched.Description)
	assert.Equal(t, input.Photos, fetched.Photos)
	assert.Equal(t, valueobject.ReportStatusPending, fetched.Status)
	assert.Equal(t, valueobject.ReportSourceAPI, fetched.Source)
	assert.False(t, fetched.CreatedAt.IsZero())
	assert.False(t, fetched.UpdatedAt.IsZero())
	assert.Equal(t, 1, cache.invalidations)
}

func TestSubmitReport_DefaultsAnonymousName(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	input := validInput()
	input.ReporterName = "  "

	created, err := newSubmit(store, nil).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultReporterName, created.ReporterName)
}

func TestSubmitReport_MissingFieldsRejected(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*report.SubmitReportInput)
		fields []string
	}{
		{"нет типа", func(in *report.SubmitReportInput) { in.DisasterType = "" }, []string{"disaster_type"}},
		{"нет severity", func(in *report.SubmitReportInput) { in.Severity = "" }, []string{"severity"}},
		{"нет обоих", func(in *report.SubmitReportInput) {
			in.DisasterType = ""
			in.Severity = ""
		}, []string{"disaster_type", "severity"}},
		{"неизвестный тип", func(in *report.SubmitReportInput) { in.DisasterType = "Meteor" }, []string{"disaster_type"}},
		{"нет автора", func(in *report.SubmitReportInput) { in.ReporterID = "" }, []string{"user_id"}},
		{"нет координат", func(in *report.SubmitReportInput) {
			in.Latitude = nil
			in.Longitude = nil
		}, []string{"latitude", "longitude"}},
		{"только широта", func(in *report.SubmitReportInput) { in.Longitude = nil }, []string{"longitude"}},
		{"широта вне диапазона", func(in *report.SubmitReportInput) { in.Latitude = floatPtr(91) }, []string{"latitude"}},
		{"долгота вне диапазона", func(in *report.SubmitReportInput) { in.Longitude = floatPtr(-180.5) }, []string{"longitude"}},
		{"пустое фото", func(in *report.SubmitReportInput) { in.Photos = []string{""} }, []string{"photos"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memstore.New()
			input := validInput()
			tc.mutate(&input)

			_, err := newSubmit(store, nil).Execute(context.Background(), input)

			require.True(t, apperror.IsValidation(err), "ожидалась VALIDATION_ERROR, получено %v", err)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tc.fields, appErr.Fields)
			assert.Equal(t, 0, store.ReportCount())
			assert.Equal(t, 0, store.Calls("Create"))
		})
	}
}

func TestSubmitReport_LocationDeferred(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	input := validInput()
	input.Latitude = nil
	input.Longitude = nil
	input.LocationDeferred = true

	created, err := newSubmit(store, nil).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, created.Location)
}

func TestSubmitReport_RegeneratesIDOnCollision(t *testing.T) {
	logger.Discard()
	store := &duplicateOnceStore{Store: memstore.New()}
	uc := report.NewSubmitReportUseCase(store, nil, nil)

	created, err := uc.Execute(context.Background(), validInput())
	require.NoError(t, err)
	assert.True(t, store.failed)
	assert.Equal(t, 1, store.ReportCount())

	_, err = store.FindByID(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestSubmitReport_StoreUnavailable(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	store.FailWith(apperror.StoreUnavailable(errors.New("dial tcp"), "хранилище недоступно"))

	_, err := newSubmit(store, nil).Execute(context.Background(), validInput())
	assert.True(t, apperror.IsStoreUnavailable(err))
}

func TestSubmitReport_CriticalCreatesExactlyOneAlert(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	input := validInput()
	input.Severity = "critical"

	created, err := newSubmit(store, nil).Execute(context.Background(), input)
	require.NoError(t, err)

	a, err := store.FindAlertByReportID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, a.ReportID)
	assert.Equal(t, 1, store.AlertCount())
}

// alertFailingStore ломает только запись оповещения.
type alertFailingStore struct {
	*memstore.Store
}

func (s *alertFailingStore) CreateAlert(ctx context.Context, a *entity.EmergencyAlert) error {
	return apperror.StoreUnavailable(errors.New("timeout"), "хранилище недоступно")
}

func TestSubmitReport_AlertFailureDoesNotFailSubmission(t *testing.T) {
	logger.Discard()
	store := &alertFailingStore{Store: memstore.New()}
	uc := report.NewSubmitReportUseCase(store, alert.NewDispatcher(store), nil)
	input := validInput()
	input.Severity = "Critical"

	created, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusPending, created.Status)
	assert.Equal(t, 1, store.ReportCount())
	assert.Equal(t, 0, store.AlertCount())
}

func TestSubmitReport_AlertFailureLoggedOnce(t *testing.T) {
	logger.Discard()
	hook := logtest.NewLocal(logger.Log)
	defer hook.Reset()

	store := &alertFailingStore{Store: memstore.New()}
	uc := report.NewSubmitReportUseCase(store, alert.NewDispatcher(store), nil)
	input := validInput()
	input.Severity = "Critical"

	_, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)

	warnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestSubmitReport_NonCriticalCreatesNoAlert(t *testing.T) {
	logger.Discard()
	store := memstore.New()

	for _, severity := range []string{"Low", "Medium", "High"} {
		input := validInput()
		input.Severity = severity
		_, err := newSubmit(store, nil).Execute(context.Background(), input)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, store.ReportCount())
	assert.Equal(t, 0, store.AlertCount())
}

func TestScenario_FloodResolvedThenReopenRejected(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	cache := &countingCache{}

	created, err := newSubmit(store, cache).Execute(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusPending, created.Status)
	assert.Equal(t, 0, store.AlertCount())

	changeStatus := report.NewChangeStatusUseCase(store, cache)

	resolved, err := changeStatus.Execute(context.Background(), created.ID, "Resolved")
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusResolved, resolved.Status)

	_, err = changeStatus.Execute(context.Background(), created.ID, "Pending")
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Equal(t, 2, cache.invalidations)
}

func TestChangeStatus_TerminalStates(t *testing.T) {
	logger.Discard()

	for _, terminal := range []string{"Resolved", "Cancelled"} {
		t.Run(terminal, func(t *testing.T) {
			store := memstore.New()
			created, err := newSubmit(store, nil).Execute(context.Background(), validInput())
			require.NoError(t, err)

			uc := report.NewChangeStatusUseCase(store, nil)
			_, err = uc.Execute(context.Background(), created.ID, terminal)
			require.NoError(t, err)

			for _, s := range valueobject.ReportStatuses() {
				got, err := uc.Execute(context.Background(), created.ID, string(s))
				if string(s) == terminal {
					require.NoError(t, err)
					assert.Equal(t, s, got.Status)
					continue
				}
				assert.True(t, apperror.IsInvalidTransition(err), "%s -> %s", terminal, s)
			}
		})
	}
}

func TestChangeStatus_SameStateIsNoop(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	created, err := newSubmit(store, nil).Execute(context.Background(), validInput())
	require.NoError(t, err)

	got, err := report.NewChangeStatusUseCase(store, nil).Execute(context.Background(), created.ID, "Pending")
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusPending, got.Status)
	assert.Equal(t, 0, store.Calls("UpdateStatus"))
}

func TestChangeStatus_Errors(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	uc := report.NewChangeStatusUseCase(store, nil)

	_, err := uc.Execute(context.Background(), "ABCDEF12", "Resolved")
	assert.True(t, apperror.IsNotFound(err))

	_, err = uc.Execute(context.Background(), "ABCDEF12", "Done")
	assert.True(t, apperror.IsValidation(err))
}

func TestChangeStatus_CancelFromInProgress(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	created, err := newSubmit(store, nil).Execute(context.Background(), validInput())
	require.NoError(t, err)

	uc := report.NewChangeStatusUseCase(store, nil)
	_, err = uc.Execute(context.Background(), created.ID, "in_progress")
	require.NoError(t, err)

	got, err := uc.Execute(context.Background(), created.ID, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, valueobject.ReportStatusCancelled, got.Status)
	assert.Equal(t, valueobject.SeverityHigh, got.Severity)
}

// readBarrierStore держит FindByID, пока оба запроса не прочитают отчёт.
type readBarrierStore struct {
	*memstore.Store
	readers sync.WaitGroup
}

func (s *readBarrierStore) FindByID(ctx context.Context, id string) (*entity.Report, error) {
	r, err := s.Store.FindByID(ctx, id)
	s.readers.Done()
	s.readers.Wait()
	return r, err
}

func TestChangeStatus_ConcurrentTerminalTransitions(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	created, err := newSubmit(store, nil).Execute(context.Background(), validInput())
	require.NoError(t, err)

	barrier := &readBarrierStore{Store: store}
	barrier.readers.Add(2)
	uc := report.NewChangeStatusUseCase(barrier, nil)

	targets := []string{"Resolved", "Cancelled"}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), created.ID, target)
		}(i, target)
	}
	wg.Wait()

	var winner string
	failures := 0
	for i, err := range errs {
		if err == nil {
			winner = targets[i]
			continue
		}
		failures++
		assert.True(t, apperror.IsInvalidTransition(err), "%v", err)
	}
	require.Equal(t, 1, failures)

	got, err := store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, winner, string(got.Status))
}

func TestChangeStatus_StaleStatusRejectedByStore(t *testing.T) {
	store := memstore.New()
	created, err := newSubmit(store, nil).Execute(context.Background(), validInput())
	require.NoError(t, err)

	_, err = store.UpdateStatus(context.Background(), created.ID, valueobject.ReportStatusPending, valueobject.ReportStatusResolved)
	require.NoError(t, err)

	_, err = store.UpdateStatus(context.Background(), created.ID, valueobject.ReportStatusPending, valueobject.ReportStatusCancelled)
	assert.ErrorIs(t, err, apperror.ErrReportStatusChanged)

	_, err = store.UpdateStatus(context.Background(), "ABCDEF12", valueobject.ReportStatusPending, valueobject.ReportStatusCancelled)
	assert.True(t, apperror.IsNotFound(err))
}
