package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"license-binding-server/internal/database"
	"license-binding-server/internal/model"
)

// LicensesCollection is the collection name of the license store.
const LicensesCollection = "licenses"

const (
	defaultLicenseTTL = 30 * 24 * time.Hour
	keyTimeLayout     = "20060102150405"
	maxKeyAttempts    = 64
)

// Lifecycle operation names reported to Metrics.
const (
	OpIssue        = "issue"
	OpRenew        = "renew"
	OpBlock        = "block"
	OpUnblock      = "unblock"
	OpResetBinding = "reset_binding"
	OpRemove       = "remove"
)

// Metrics records lifecycle and validation outcomes.
type Metrics interface {
	RecordValidation(outcome string)
	RecordOperation(op string)
}

// Mirror receives a copy of every license after it changes.
type Mirror interface {
	SyncLicense(ctx context.Context, license model.License) error
	RemoveLicense(ctx context.Context, key string) error
	SyncAll(ctx context.Context, licenses []model.License) error
}

type nopMetrics struct{}

func (nopMetrics) RecordValidation(string) {}
func (nopMetrics) RecordOperation(string)  {}

// IssueRequest describes a new license. Zero fields mean absent.
type IssueRequest struct {
	Owner       string
	HardwareID  string
	ExpiresAt   *time.Time
	PerformedBy string
	SourceIP    string
}

// LicenseStore owns the license records and runs every lifecycle operation
// under the license collection lock.
type LicenseStore struct {
	licenses    *database.Collection[model.License]
	credentials *CredentialStore
	notifier    Notifier
	metrics     Metrics
	mirror      Mirror
	logger      *slog.Logger
	now         func() time.Time
	randSuffix  func() int
}

type LicenseStoreOption func(*LicenseStore)

func WithNotifier(n Notifier) LicenseStoreOption {
	return func(s *LicenseStore) { s.notifier = n }
}

func WithMetrics(m Metrics) LicenseStoreOption {
	return func(s *LicenseStore) { s.metrics = m }
}

func WithMirror(m Mirror) LicenseStoreOption {
	return func(s *LicenseStore) { s.mirror = m }
}

func WithLogger(l *slog.Logger) LicenseStoreOption {
	return func(s *LicenseStore) { s.logger = l }
}

// WithClock replaces the wall clock. Used by tests.
func WithClock(now func() time.Time) LicenseStoreOption {
	return func(s *LicenseStore) { s.now = now }
}

// WithKeySuffix replaces the random key suffix generator. Used by tests.
func WithKeySuffix(fn func() int) LicenseStoreOption {
	return func(s *LicenseStore) { s.randSuffix = fn }
}

func NewLicenseStore(backend database.Backend, credentials *CredentialStore, opts ...LicenseStoreOption) *LicenseStore {
	s := &LicenseStore{
		licenses:    database.NewCollection[model.License](LicensesCollection, backend),
		credentials: credentials,
		notifier:    nopNotifier{},
		metrics:     nopMetrics{},
		logger:      slog.Default(),
		now:         time.Now,
		randSuffix:  func() int { return 1000 + rand.IntN(9000) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a license with a fresh key and a single CREATED history entry.
func (s *LicenseStore) Issue(req IssueRequest) (model.License, error) {
	var issued model.License
	err := s.licenses.Update(func(tx *database.Tx[model.License]) error {
		now := s.now().UTC()
		key, err := s.uniqueKey(tx.Items, now)
		if err != nil {
			return err
		}

		expiresAt := now.Add(defaultLicenseTTL)
		if req.ExpiresAt != nil {
			expiresAt = req.ExpiresAt.UTC()
		}

		lic := model.License{
			Key:        key,
			User:       req.Owner,
			HWID:       req.HardwareID,
			CreatedAt:  now,
			Expiration: &expiresAt,
		}
		appendEvent(&lic, now, model.EventCreated, createdDetails(expiresAt), performer(req.PerformedBy))

		tx.Items = append(tx.Items, lic)
		tx.MarkDirty()
		issued = lic
		return nil
	})
	if err != nil {
		return model.License{}, err
	}

	s.metrics.RecordOperation(OpIssue)
	s.notifier.Notify(NotifyLicenseGenerated,
		fmt.Sprintf("license %s generated (expires: %s)", issued.Key, issued.Expiration.Format(dateLayout)),
		req.SourceIP)
	s.syncMirror(issued)
	return issued, nil
}

func (s *LicenseStore) uniqueKey(items []model.License, now time.Time) (string, error) {
	stamp := now.Format(keyTimeLayout)
	for i := 0; i < maxKeyAttempts; i++ {
		key := fmt.Sprintf("LIC-%s-%04d", stamp, s.randSuffix())
		if indexOfLicense(items, key) < 0 {
			return key, nil
		}
	}
	return "", reason(ErrConflict, "could not generate a unique license key")
}

// Renew overwrites the expiration and appends RENEWED.
func (s *LicenseStore) Renew(key string, newExpiresAt time.Time, performedBy string) error {
	if newExpiresAt.IsZero() {
		return invalidInput("new expiration is required")
	}
	return s.mutate(OpRenew, key, func(l *model.License, now time.Time) {
		exp := newExpiresAt.UTC()
		l.Expiration = &exp
		appendEvent(l, now, model.EventRenewed, renewedDetails(exp), performer(performedBy))
	})
}

// Block marks the license blocked. Blocking an already blocked license still appends BLOCKED.
func (s *LicenseStore) Block(key, performedBy string) error {
	return s.mutate(OpBlock, key, func(l *model.License, now time.Time) {
		l.Blocked = true
		appendEvent(l, now, model.EventBlocked, "License blocked", performer(performedBy))
	})
}

func (s *LicenseStore) Unblock(key, performedBy string) error {
	return s.mutate(OpUnblock, key, func(l *model.License, now time.Time) {
		l.Blocked = false
		appendEvent(l, now, model.EventUnblocked, "License unblocked", performer(performedBy))
	})
}

// ResetBinding clears the bound hardware id so the next validation may bind a new one.
func (s *LicenseStore) ResetBinding(key, performedBy string) error {
	return s.mutate(OpResetBinding, key, func(l *model.License, now time.Time) {
		l.HWID = ""
		appendEvent(l, now, model.EventHWIDReset, "HWID reset", performer(performedBy))
	})
}

func (s *LicenseStore) mutate(op, key string, fn func(l *model.License, now time.Time)) error {
	var updated model.License
	err := s.licenses.Update(func(tx *database.Tx[model.License]) error {
		i := indexOfLicense(tx.Items, key)
		if i < 0 {
			return ErrLicenseNotFound
		}
		fn(&tx.Items[i], s.now().UTC())
		tx.MarkDirty()
		updated = tx.Items[i]
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordOperation(op)
	s.syncMirror(updated)
	return nil
}

// Remove deletes the license permanently.
func (s *LicenseStore) Remove(key string) error {
	var removed string
	err := s.licenses.Update(func(tx *database.Tx[model.License]) error {
		i := indexOfLicense(tx.Items, key)
		if i < 0 {
			return ErrLicenseNotFound
		}
		removed = tx.Items[i].Key
		tx.Items = slices.Delete(tx.Items, i, i+1)
		tx.MarkDirty()
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordOperation(OpRemove)
	if s.mirror != nil {
		go func() {
			if err := s.mirror.RemoveLicense(context.Background(), removed); err != nil {
				s.logger.Error("mirror remove failed", slog.String("key", removed), slog.Any("error", err))
			}
		}()
	}
	return nil
}

// Get returns the license identified by key.
func (s *LicenseStore) Get(key string) (model.License, error) {
	var found model.License
	err := s.licenses.View(func(items []model.License) error {
		i := indexOfLicense(items, key)
		if i < 0 {
			return ErrLicenseNotFound
		}
		found = items[i]
		return nil
	})
	return found, err
}

// List returns the licenses matching filter, evaluated against the clock at call time.
func (s *LicenseStore) List(filter string) ([]model.License, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if !model.IsKnownFilter(filter) {
		return nil, invalidInput("unknown filter %q", filter)
	}

	result := []model.License{}
	err := s.licenses.View(func(items []model.License) error {
		now := s.now()
		for _, l := range items {
			if l.Matches(filter, now) {
				result = append(result, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FindByOwner returns the first license whose owner matches username case-insensitively.
func (s *LicenseStore) FindByOwner(username string) (model.License, error) {
	var found model.License
	err := s.licenses.View(func(items []model.License) error {
		i := slices.IndexFunc(items, func(l model.License) bool {
			return l.User != "" && strings.EqualFold(l.User, username)
		})
		if i < 0 {
			return ErrNoLicense
		}
		found = items[i]
		return nil
	})
	return found, err
}

// SyncAll pushes every license to the mirror.
func (s *LicenseStore) SyncAll(ctx context.Context) (int, error) {
	if s.mirror == nil {
		return 0, reason(ErrConflict, "license mirror is not configured")
	}
	all, err := s.licenses.Load()
	if err != nil {
		return 0, err
	}
	if err := s.mirror.SyncAll(ctx, all); err != nil {
		return 0, fmt.Errorf("sync licenses: %w", err)
	}
	return len(all), nil
}

func (s *LicenseStore) syncMirror(l model.License) {
	if s.mirror == nil {
		return
	}
	go func() {
		if err := s.mirror.SyncLicense(context.Background(), l); err != nil {
			s.logger.Error("mirror sync failed", slog.String("key", l.Key), slog.Any("error", err))
		}
	}()
}

func indexOfLicense(items []model.License, key string) int {
	return slices.IndexFunc(items, func(l model.License) bool {
		return l.MatchesKey(key)
	})
}
