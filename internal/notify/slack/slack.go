// Package slack отправляет оповещения о критических отчётах в Slack через incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
)

const (
	colorCritical  = "#d00000"
	defaultTimeout = 10 * time.Second
)

type Notifier struct {
	webhookURL string
	baseURL    string
	httpClient *http.Client
}

type NotifierOpts struct {
	WebhookURL string
	// GatewayBaseURL используется для ссылки на отчёт.
	GatewayBaseURL string
	// HTTPClient для тестов, по умолчанию клиент с таймаутом 10s.
	HTTPClient *http.Client
}

func New(opts NotifierOpts) (*Notifier, error) {
	if opts.WebhookURL == "" {
		return nil, fmt.Errorf("slack: webhook url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{
		webhookURL: opts.WebhookURL,
		baseURL:    strings.TrimRight(opts.GatewayBaseURL, "/"),
		httpClient: client,
	}, nil
}

func (n *Notifier) Name() string { return "slack" }

func (n *Notifier) NotifyAlert(ctx context.Context, alert *entity.EmergencyAlert) error {
	msg := BuildWebhookMessage(alert, n.baseURL)
	if err := slackapi.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

// BuildWebhookMessage формирует сообщение с вложением по оповещению.
func BuildWebhookMessage(alert *entity.EmergencyAlert, baseURL string) *slackapi.WebhookMessage {
	title := fmt.Sprintf("🚨 %s: %s", alert.AlertType, alert.DisasterType)

	location := "Not provided"
	if alert.Location != nil {
		location = alert.Location.String()
	}

	att := slackapi.Attachment{
		Title:    title,
		Fallback: title,
		Color:    colorCritical,
		Text:     alert.Description,
		Fields: []slackapi.AttachmentField{
			{Title: "Report ID", Value: alert.ReportID, Short: true},
			{Title: "Severity", Value: string(alert.Severity), Short: true},
			{Title: "Location", Value: location, Short: true},
			{Title: "Status", Value: string(alert.Status), Short: true},
		},
		Footer: "Alert " + alert.ID.String(),
		Ts:     jsonTimestamp(alert.CreatedAt),
	}
	if baseURL != "" {
		att.TitleLink = baseURL + "/api/reports/" + alert.ReportID
	}

	return &slackapi.WebhookMessage{
		Text:        title,
		Attachments: []slackapi.Attachment{att},
	}
}

func jsonTimestamp(t time.Time) json.Number {
	if t.IsZero() {
		return ""
	}
	return json.Number(strconv.FormatInt(t.Unix(), 10))
}
