package alert_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/infrastructure/persistence/memstore"
	"github.com/ignatzorin/disaster-backend/internal/logger"
	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
	"github.com/ignatzorin/disaster-backend/internal/usecase/alert"
)

func TestChangeAlertStatus_Lifecycle(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	created := alert.NewDispatcher(store).Evaluate(context.Background(), newReport(t, valueobject.SeverityCritical))
	require.NotNil(t, created.Alert)

	uc := alert.NewChangeAlertStatusUseCase(store)
	ctx := context.Background()

	acked, err := uc.Execute(ctx, created.Alert.ID, "acknowledged")
	require.NoError(t, err)
	assert.Equal(t, valueobject.AlertStatusAcknowledged, acked.Status)

	closed, err := uc.Execute(ctx, created.Alert.ID, "Closed")
	require.NoError(t, err)
	assert.Equal(t, valueobject.AlertStatusClosed, closed.Status)

	same, err := uc.Execute(ctx, created.Alert.ID, "Closed")
	require.NoError(t, err)
	assert.Equal(t, valueobject.AlertStatusClosed, same.Status)

	_, err = uc.Execute(ctx, created.Alert.ID, "Open")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestChangeAlertStatus_Errors(t *testing.T) {
	store := memstore.New()
	uc := alert.NewChangeAlertStatusUseCase(store)

	_, err := uc.Execute(context.Background(), uuid.New(), "Closed")
	assert.True(t, apperror.IsNotFound(err))

	_, err = uc.Execute(context.Background(), uuid.New(), "Escalated")
	assert.True(t, apperror.IsValidation(err))
}

func TestListAlerts_FilterByStatus(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	d := alert.NewDispatcher(store)
	first := d.Evaluate(context.Background(), newReport(t, valueobject.SeverityCritical))
	d.Evaluate(context.Background(), newReport(t, valueobject.SeverityCritical))

	_, err := alert.NewChangeAlertStatusUseCase(store).Execute(context.Background(), first.Alert.ID, "Closed")
	require.NoError(t, err)

	list := alert.NewListAlertsUseCase(store)

	open, err := list.Execute(context.Background(), alert.ListAlertsInput{Status: "Open"})
	require.NoError(t, err)
	assert.Len(t, open, 1)

	all, err := list.Execute(context.Background(), alert.ListAlertsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = list.Execute(context.Background(), alert.ListAlertsInput{Status: "bogus"})
	assert.True(t, apperror.IsValidation(err))

	got, err := alert.NewGetAlertUseCase(store).Execute(context.Background(), first.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.AlertStatusClosed, got.Status)
}

// alertReadBarrier держит FindAlertByID, пока оба запроса не прочитают оповещение.
type alertReadBarrier struct {
	*memstore.Store
	readers sync.WaitGroup
}

func (s *alertReadBarrier) FindAlertByID(ctx context.Context, id uuid.UUID) (*entity.EmergencyAlert, error) {
	a, err := s.Store.FindAlertByID(ctx, id)
	s.readers.Done()
	s.readers.Wait()
	return a, err
}

func TestChangeAlertStatus_ConcurrentUpdatesOneWins(t *testing.T) {
	logger.Discard()
	store := memstore.New()
	created := alert.NewDispatcher(store).Evaluate(context.Background(), newReport(t, valueobject.SeverityCritical))
	require.NotNil(t, created.Alert)

	barrier := &alertReadBarrier{Store: store}
	barrier.readers.Add(2)
	uc := alert.NewChangeAlertStatusUseCase(barrier)

	targets := []string{"Acknowledged", "Closed"}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			_, errs[i] = uc.Execute(context.Background(), created.Alert.ID, target)
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
		assert.ErrorIs(t, err, apperror.ErrAlertStatusChanged)
	}
	require.Equal(t, 1, failures)

	got, err := store.FindAlertByID(context.Background(), created.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, winner, string(got.Status))
}
