package model

import (
	"strings"
	"time"
)

// License event types recorded in a license history.
const (
	EventCreated        = "CREATED"
	EventValidated      = "VALIDATED"
	EventBlockedAttempt = "BLOCKED_ATTEMPT"
	EventExpiredAttempt = "EXPIRED_ATTEMPT"
	EventHWIDMismatch   = "HWID_MISMATCH"
	EventReusedAttempt  = "REUSED_ATTEMPT"
	EventRenewed        = "RENEWED"
	EventBlocked        = "BLOCKED"
	EventUnblocked      = "UNBLOCKED"
	EventHWIDReset      = "HWID_RESET"
)

// License filters accepted by the advanced listing.
const (
	FilterValid   = "valid"
	FilterExpired = "expired"
	FilterUsed    = "used"
	FilterBlocked = "blocked"
)

type License struct {
	Key        string         `json:"key"`
	User       string         `json:"user,omitempty"`
	HWID       string         `json:"hwid,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	Expiration *time.Time     `json:"expiration,omitempty"`
	Used       bool           `json:"used"`
	UsedAt     *time.Time     `json:"usedAt,omitempty"`
	UsedBy     string         `json:"usedBy,omitempty"`
	Blocked    bool           `json:"blocked"`
	History    []LicenseEvent `json:"history"`
}

// LicenseEvent is one entry of the append-only license history.
type LicenseEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"eventType"`
	Details     string    `json:"details,omitempty"`
	PerformedBy string    `json:"performedBy,omitempty"`
}

// MatchesKey reports whether key identifies this license. Keys compare case-insensitively.
func (l *License) MatchesKey(key string) bool {
	return strings.EqualFold(l.Key, key)
}

// IsExpired reports whether the license has an expiration strictly before now.
func (l *License) IsExpired(now time.Time) bool {
	return l.Expiration != nil && l.Expiration.Before(now)
}

// IsValid reports whether the license could still be consumed at now.
func (l *License) IsValid(now time.Time) bool {
	return !l.Used && !l.Blocked && (l.Expiration == nil || l.Expiration.After(now))
}

// HWIDConflicts reports whether both the bound and the presented hardware ids are set and differ.
func (l *License) HWIDConflicts(hwid string) bool {
	return l.HWID != "" && hwid != "" && l.HWID != hwid
}

// Matches reports whether the license belongs to the given listing filter.
// An empty filter matches everything.
func (l *License) Matches(filter string, now time.Time) bool {
	switch filter {
	case "":
		return true
	case FilterValid:
		return l.IsValid(now)
	case FilterExpired:
		return l.IsExpired(now)
	case FilterUsed:
		return l.Used
	case FilterBlocked:
		return l.Blocked
	}
	return false
}

// IsKnownFilter reports whether filter is empty or one of the listing filters.
func IsKnownFilter(filter string) bool {
	switch filter {
	case "", FilterValid, FilterExpired, FilterUsed, FilterBlocked:
		return true
	}
	return false
}
