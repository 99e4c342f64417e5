package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"license-binding-server/internal/database"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type notification struct {
	EventType string
	Detail    string
	SourceIP  string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (r *recordingNotifier) Notify(eventType, detail, sourceIP string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, notification{EventType: eventType, Detail: detail, SourceIP: sourceIP})
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type recordingMetrics struct {
	mu          sync.Mutex
	validations map[string]int
	operations  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{validations: map[string]int{}, operations: map[string]int{}}
}

func (m *recordingMetrics) RecordValidation(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations[outcome]++
}

func (m *recordingMetrics) RecordOperation(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[op]++
}

type testEnv struct {
	backend     *database.MemoryBackend
	credentials *CredentialStore
	licenses    *LicenseStore
	notifier    *recordingNotifier
	metrics     *recordingMetrics
}

func newTestEnv(t *testing.T, opts ...LicenseStoreOption) *testEnv {
	t.Helper()
	return newTestEnvWithAdmin(t, AdminCredential{Username: "admin"}, opts...)
}

func newTestEnvWithAdmin(t *testing.T, admin AdminCredential, opts ...LicenseStoreOption) *testEnv {
	t.Helper()

	env := &testEnv{
		backend:  database.NewMemoryBackend(),
		notifier: &recordingNotifier{},
		metrics:  newRecordingMetrics(),
	}
	creds, err := NewCredentialStore(env.backend, admin)
	require.NoError(t, err)
	env.credentials = creds

	base := []LicenseStoreOption{
		WithNotifier(env.notifier),
		WithMetrics(env.metrics),
		WithClock(func() time.Time { return testNow }),
	}
	env.licenses = NewLicenseStore(env.backend, creds, append(base, opts...)...)
	return env
}

func (e *testEnv) issue(t *testing.T, req IssueRequest) string {
	t.Helper()
	lic, err := e.licenses.Issue(req)
	require.NoError(t, err)
	return lic.Key
}

func ptr[T any](v T) *T { return &v }
