package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

const webhookTimeLayout = "2006-01-02 15:04:05 UTC"

// Embed colours per event type.
const (
	colorGreen  = 0x00FF00
	colorRed    = 0xFF0000
	colorBlue   = 0x0099FF
	colorOrange = 0xFF6600
	colorGray   = 0x808080
)

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []webhookField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

type webhookPayload struct {
	Content string         `json:"content"`
	Embeds  []webhookEmbed `json:"embeds"`
}

// WebhookNotifier posts notifications to a chat webhook. Delivery runs in the
// background and failures are only logged.
type WebhookNotifier struct {
	url     string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{url: url, timeout: timeout, logger: logger, now: time.Now}
}

func (w *WebhookNotifier) Notify(eventType, detail, sourceIP string) {
	go func() {
		if err := w.Send(eventType, detail, sourceIP); err != nil {
			w.logger.Warn("webhook delivery failed",
				slog.String("event_type", eventType),
				slog.Any("error", err))
		}
	}()
}

// Send delivers one notification synchronously.
func (w *WebhookNotifier) Send(eventType, detail, sourceIP string) error {
	payload := w.payload(eventType, detail, sourceIP)

	agent := fiber.Post(w.url)
	agent.JSON(payload)
	if w.timeout > 0 {
		agent.Timeout(w.timeout)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d: %s", code, truncate(string(body), 200))
	}
	return nil
}

func (w *WebhookNotifier) payload(eventType, detail, sourceIP string) webhookPayload {
	now := w.now().UTC()
	stamp := now.Format(webhookTimeLayout)
	iso := now.Format("2006-01-02T15:04:05.000Z")

	if IsSecurityAlert(eventType) {
		return webhookPayload{
			Content: fmt.Sprintf("**SECURITY ALERT**\n**Type:** %s\n**Details:** %s\n**IP:** %s\n**Time:** %s",
				eventType, detail, sourceIP, stamp),
			Embeds: []webhookEmbed{{
				Title:       "Security Alert",
				Description: detail,
				Color:       colorRed,
				Fields: []webhookField{
					{Name: "Alert Type", Value: eventType, Inline: true},
					{Name: "IP Address", Value: sourceIP, Inline: true},
					{Name: "Timestamp", Value: stamp, Inline: true},
				},
				Timestamp: iso,
			}},
		}
	}

	return webhookPayload{
		Content: fmt.Sprintf("**API Access**\n**IP:** %s\n**Action:** %s\n**Details:** %s\n**Time:** %s",
			sourceIP, eventType, detail, stamp),
		Embeds: []webhookEmbed{{
			Title: "API Access Details",
			Color: colorFor(eventType),
			Fields: []webhookField{
				{Name: "IP Address", Value: sourceIP, Inline: true},
				{Name: "Action", Value: eventType, Inline: true},
				{Name: "Timestamp", Value: stamp, Inline: true},
				{Name: "Details", Value: truncate(detail, 100), Inline: false},
			},
			Timestamp: iso,
		}},
	}
}

func colorFor(eventType string) int {
	switch eventType {
	case NotifyLoginSuccess, NotifyLicenseValidated:
		return colorGreen
	case NotifyLoginFailed, NotifyUnauthorized:
		return colorRed
	case NotifyLicenseGenerated:
		return colorBlue
	case NotifyLicenseInvalid:
		return colorOrange
	}
	return colorGray
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
