package service

import (
	"context"
	"log/slog"
)

// Notification event types.
const (
	NotifyLicenseGenerated   = "LICENSE_GENERATED"
	NotifyLicenseValidated   = "LICENSE_VALIDATED"
	NotifyLicenseInvalid     = "LICENSE_INVALID"
	NotifyLicenseAlreadyUsed = "LICENSE_ALREADY_USED"
	NotifyLoginSuccess       = "LOGIN_SUCCESS"
	NotifyLoginFailed        = "LOGIN_FAILED"
	NotifyUnauthorized       = "UNAUTHORIZED_ACCESS"
)

// IsSecurityAlert reports whether eventType is sent as a security alert rather than an access log.
func IsSecurityAlert(eventType string) bool {
	switch eventType {
	case NotifyLicenseInvalid, NotifyLicenseAlreadyUsed, NotifyLoginFailed, NotifyUnauthorized:
		return true
	}
	return false
}

// Notifier receives security and access notifications. Implementations must
// not block the caller on delivery and never report failures back.
type Notifier interface {
	Notify(eventType, detail, sourceIP string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string) {}

// MultiNotifier fans a notification out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(eventType, detail, sourceIP string) {
	for _, n := range m {
		if n != nil {
			n.Notify(eventType, detail, sourceIP)
		}
	}
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(eventType, detail, sourceIP string) {
	level := slog.LevelInfo
	if IsSecurityAlert(eventType) {
		level = slog.LevelWarn
	}
	n.Logger.Log(context.Background(), level, "notification",
		slog.String("event_type", eventType),
		slog.String("detail", detail),
		slog.String("source_ip", sourceIP))
}
