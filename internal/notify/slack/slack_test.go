package slack_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
	"github.com/ignatzorin/disaster-backend/internal/notify/slack"
)

func newAlert(t *testing.T, withLocation bool) *entity.EmergencyAlert {
	t.Helper()
	report := &entity.Report{
		ID:           "AB12CD34",
		DisasterType: valueobject.DisasterFlood,
		Severity:     valueobject.SeverityCritical,
		Description:  "Water above first floor",
	}
	if withLocation {
		loc, err := valueobject.NewLocation(13.08, 80.27)
		require.NoError(t, err)
		report.Location = &loc
	}
	alert, err := entity.NewEmergencyAlert(report)
	require.NoError(t, err)
	return alert
}

func TestNew_RequiresWebhook(t *testing.T) {
	_, err := slack.New(slack.NotifierOpts{})
	assert.Error(t, err)
}

func TestNotifyAlert_PostsAttachment(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := slack.New(slack.NotifierOpts{WebhookURL: srv.URL, GatewayBaseURL: "https://disaster.example/"})
	require.NoError(t, err)
	assert.Equal(t, "slack", n.Name())

	require.NoError(t, n.NotifyAlert(context.Background(), newAlert(t, true)))

	require.NotNil(t, body)
	attachments, ok := body["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	att := attachments[0].(map[string]interface{})
	assert.Equal(t, "https://disaster.example/api/reports/AB12CD34", att["title_link"])
	assert.Contains(t, att["title"], "Flood")
	assert.Equal(t, "Water above first floor", att["text"])
}

func TestNotifyAlert_WebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := slack.New(slack.NotifierOpts{WebhookURL: srv.URL})
	require.NoError(t, err)
	assert.Error(t, n.NotifyAlert(context.Background(), newAlert(t, false)))
}

func TestBuildWebhookMessage_WithoutLocation(t *testing.T) {
	msg := slack.BuildWebhookMessage(newAlert(t, false), "")
	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Empty(t, att.TitleLink)

	var location string
	for _, f := range att.Fields {
		if f.Title == "Location" {
			location = f.Value
		}
	}
	assert.Equal(t, "Not provided", location)
}
