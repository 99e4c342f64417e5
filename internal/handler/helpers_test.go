package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"license-binding-server/internal/database"
	"license-binding-server/internal/middleware"
	"license-binding-server/internal/model"
	"license-binding-server/internal/service"
	"license-binding-server/internal/util"
)

const (
	testAdminUser     = "admin"
	testAdminPassword = "admin-secret"
)

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingNotifier) Notify(eventType, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
}

func (r *recordingNotifier) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type testServer struct {
	app         *fiber.App
	licenses    *service.LicenseStore
	credentials *service.CredentialStore
	events      *service.EventLog
	tokens      *util.TokenManager
	notifier    *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.CleanTestDB(db) })

	events, err := service.NewEventLog(db, logger)
	require.NoError(t, err)

	recorder := &recordingNotifier{}
	notifier := service.MultiNotifier{events, recorder}

	backend := database.NewMemoryBackend()
	credentials, err := service.NewCredentialStore(backend, service.AdminCredential{
		Username: testAdminUser,
		Password: testAdminPassword,
	})
	require.NoError(t, err)

	licenses := service.NewLicenseStore(backend, credentials,
		service.WithNotifier(notifier),
		service.WithLogger(logger),
	)

	tokens, err := util.NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	h := New(Deps{
		Licenses:    licenses,
		Credentials: credentials,
		Auth:        service.NewAuthService(credentials, licenses, notifier),
		Events:      events,
		Tokens:      tokens,
		Logger:      logger,
	})

	app := NewApp(AppOptions{Logger: logger})
	h.RegisterRoutes(app, RouteOptions{
		Auth: middleware.Auth(tokens, notifier),
	})

	return &testServer{
		app:         app,
		licenses:    licenses,
		credentials: credentials,
		events:      events,
		tokens:      tokens,
		notifier:    recorder,
	}
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(testAdminUser, true)
	require.NoError(t, err)
	return token
}

func (s *testServer) userToken(t *testing.T, username string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(username, false)
	require.NoError(t, err)
	return token
}

// do sends a request with an optional JSON body and bearer token.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) issue(t *testing.T, input model.IssueInput) model.License {
	t.Helper()
	lic, err := s.licenses.Issue(service.IssueRequest{
		Owner:      input.User,
		HardwareID: input.HWID,
		ExpiresAt:  input.Expiration,
	})
	require.NoError(t, err)
	return lic
}
