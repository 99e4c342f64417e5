package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"license-binding-server/internal/database"
	"license-binding-server/internal/model"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
	maxPasswordLen = 32
)

// Validation outcomes reported to Metrics.
const (
	OutcomeValid              = "valid"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeNotFound           = "not_found"
	OutcomeBlocked            = "blocked"
	OutcomeExpired            = "expired"
	OutcomeHardwareMismatch   = "hardware_mismatch"
	OutcomeAlreadyConsumed    = "already_consumed"
	OutcomeRegistrationFailed = "registration_failed"
	OutcomeError              = "error"
)

// ValidateRequest is a validate-and-consume attempt. HardwareID and SourceIP are optional.
type ValidateRequest struct {
	Key        string
	Username   string
	Password   string
	HardwareID string
	SourceIP   string
}

func checkCredentialInput(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return invalidInput("username is required")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return invalidInput("username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLen || n > maxPasswordLen {
		return invalidInput("password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}
	return nil
}

// ValidateAndConsume runs the validation pipeline for one license and, when every
// check passes, registers the user and consumes the license. The whole
// read-check-mutate-write sequence holds the license collection lock, so at most
// one caller can consume a given key.
//
// Checks run in order: not found, blocked, expired, hardware mismatch, already
// consumed, registration. Every rejection after not found appends an attempt
// event to the license history and persists it. Registration failures leave the
// license untouched, and a failed license write removes the user it registered.
func (s *LicenseStore) ValidateAndConsume(req ValidateRequest) (model.License, error) {
	if strings.TrimSpace(req.Key) == "" {
		s.metrics.RecordValidation(OutcomeInvalidInput)
		return model.License{}, invalidInput("license key is required")
	}
	if err := checkCredentialInput(req.Username, req.Password); err != nil {
		s.metrics.RecordValidation(OutcomeInvalidInput)
		return model.License{}, err
	}

	var (
		consumed   model.License
		usedBy     string
		outcome    string
		validated  bool
		registered bool
	)
	err := s.licenses.Update(func(tx *database.Tx[model.License]) error {
		i := indexOfLicense(tx.Items, req.Key)
		if i < 0 {
			outcome = OutcomeNotFound
			return ErrLicenseNotFound
		}
		lic := &tx.Items[i]
		now := s.now().UTC()

		if o, err := checkLicense(lic, req, now); err != nil {
			outcome = o
			usedBy = lic.UsedBy
			tx.MarkDirty()
			return err
		}

		if err := s.credentials.Register(req.Username, req.Password); err != nil {
			outcome = OutcomeRegistrationFailed
			return err
		}
		registered = true

		lic.Used = true
		lic.UsedAt = &now
		lic.UsedBy = req.Username
		lic.User = req.Username
		if req.HardwareID != "" && lic.HWID == "" {
			lic.HWID = req.HardwareID
		}
		appendEvent(lic, now, model.EventValidated, validatedDetails(req.Username, req.HardwareID), req.Username)
		tx.MarkDirty()

		consumed = *lic
		outcome = OutcomeValid
		validated = true
		return nil
	})

	if registered && err != nil {
		// the license was never consumed; drop the account registered for it
		if rmErr := s.credentials.Remove(req.Username); rmErr != nil {
			s.logger.Error("roll back registration failed",
				slog.String("username", req.Username),
				slog.Any("error", rmErr))
		}
	}

	switch {
	case validated && err == nil:
		s.notifier.Notify(NotifyLicenseValidated,
			fmt.Sprintf("license %s validated by %s", consumed.Key, req.Username), req.SourceIP)
		s.syncMirror(consumed)
	case errors.Is(err, ErrStorageFailure):
		outcome = OutcomeError
	case outcome == OutcomeNotFound:
		s.notifier.Notify(NotifyLicenseInvalid,
			fmt.Sprintf("attempt to use unknown license %s", req.Key), req.SourceIP)
	case outcome == OutcomeAlreadyConsumed:
		s.notifier.Notify(NotifyLicenseAlreadyUsed,
			fmt.Sprintf("attempt to reuse license %s (used by: %s)", req.Key, usedBy), req.SourceIP)
	}
	if outcome == "" {
		outcome = OutcomeError
	}
	s.metrics.RecordValidation(outcome)

	if err != nil {
		return model.License{}, err
	}
	return consumed, nil
}

// checkLicense applies the license-level gates in order and appends the matching
// attempt event. It returns nil when the license may be consumed.
func checkLicense(lic *model.License, req ValidateRequest, now time.Time) (string, error) {
	switch {
	case lic.Blocked:
		appendEvent(lic, now, model.EventBlockedAttempt, blockedAttemptDetails(req.Username), req.Username)
		return OutcomeBlocked, ErrBlocked
	case lic.IsExpired(now):
		appendEvent(lic, now, model.EventExpiredAttempt, expiredAttemptDetails(req.Username), req.Username)
		return OutcomeExpired, ErrExpired
	case lic.HWIDConflicts(req.HardwareID):
		appendEvent(lic, now, model.EventHWIDMismatch, hwidMismatchDetails(lic.HWID, req.HardwareID), req.Username)
		return OutcomeHardwareMismatch, ErrHardwareMismatch
	case lic.Used:
		appendEvent(lic, now, model.EventReusedAttempt, reusedAttemptDetails(req.Username), req.Username)
		return OutcomeAlreadyConsumed, ErrAlreadyConsumed
	}
	return "", nil
}
