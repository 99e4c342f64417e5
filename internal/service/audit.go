package service

import (
	"fmt"
	"time"

	"license-binding-server/internal/model"
)

const defaultPerformer = "API"

const dateLayout = "2006-01-02"

// appendEvent adds one entry to the end of a license history. Entries are never
// rewritten or removed.
func appendEvent(l *model.License, at time.Time, eventType, details, performedBy string) {
	l.History = append(l.History, model.LicenseEvent{
		Timestamp:   at,
		EventType:   eventType,
		Details:     details,
		PerformedBy: performedBy,
	})
}

func performer(performedBy string) string {
	if performedBy == "" {
		return defaultPerformer
	}
	return performedBy
}

func createdDetails(expiresAt time.Time) string {
	return fmt.Sprintf("License created (expires: %s)", expiresAt.Format(dateLayout))
}

func renewedDetails(expiresAt time.Time) string {
	return fmt.Sprintf("Expiration renewed to %s", expiresAt.Format(dateLayout))
}

func blockedAttemptDetails(username string) string {
	return fmt.Sprintf("Blocked license use attempted by %s", username)
}

func expiredAttemptDetails(username string) string {
	return fmt.Sprintf("Expired license use attempted by %s", username)
}

func hwidMismatchDetails(bound, presented string) string {
	return fmt.Sprintf("HWID mismatch: expected %s, received %s", bound, presented)
}

func reusedAttemptDetails(username string) string {
	return fmt.Sprintf("License reuse attempted by %s", username)
}

func validatedDetails(username, hwid string) string {
	return fmt.Sprintf("License validated and used by %s (HWID: %s)", username, hwid)
}
