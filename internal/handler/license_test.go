package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"license-binding-server/internal/model"
	"license-binding-server/internal/service"
)

func TestHandleLicenseGenerate(t *testing.T) {
	srv := newTestServer(t)
	future := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	tests := []struct {
		name       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{name: "admin_defaults", token: srv.adminToken(t), wantStatus: http.StatusCreated},
		{
			name:       "admin_with_fields",
			token:      srv.adminToken(t),
			body:       model.IssueInput{Expiration: &future, HWID: "HW-1", User: "alice"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "owner_too_long",
			token:      srv.adminToken(t),
			body:       model.IssueInput{User: "a-very-long-username-over-limit"},
			wantStatus: http.StatusBadRequest,
		},
		{name: "non_admin", token: srv.userToken(t, "bob"), wantStatus: http.StatusForbidden},
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodPost, "/api/license/generate", tt.body, tt.token)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == http.StatusCreated {
				out := decode(t, resp)
				lic, ok := out["license"].(map[string]interface{})
				require.True(t, ok)
				assert.Regexp(t, `^LIC-\d{14}-\d{4}$`, lic["key"])
			}
		})
	}

	assert.Contains(t, srv.notifier.seen(), service.NotifyUnauthorized)
}

func TestHandleLicenseValidate(t *testing.T) {
	srv := newTestServer(t)
	lic := srv.issue(t, model.IssueInput{})

	body := model.ValidateInput{LicenseKey: lic.Key, Username: "alice", Password: "secret1", HWID: "HW-A"}

	resp := srv.do(t, http.MethodPost, "/api/license/validate", body, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, true, out["valid"])
	consumed := out["license"].(map[string]interface{})
	assert.Equal(t, true, consumed["used"])
	assert.Equal(t, "HW-A", consumed["hwid"])

	resp = srv.do(t, http.MethodPost, "/api/license/validate", body, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out = decode(t, resp)
	assert.Equal(t, false, out["valid"])
	assert.Equal(t, "license has already been used", out["message"])

	assert.Contains(t, srv.notifier.seen(), service.NotifyLicenseValidated)
	assert.Contains(t, srv.notifier.seen(), service.NotifyLicenseAlreadyUsed)
}

func TestHandleLicenseValidateRejections(t *testing.T) {
	srv := newTestServer(t)
	blocked := srv.issue(t, model.IssueInput{})
	require.NoError(t, srv.licenses.Block(blocked.Key, ""))

	tests := []struct {
		name        string
		body        model.ValidateInput
		wantMessage string
	}{
		{
			name:        "missing_key",
			body:        model.ValidateInput{Username: "alice", Password: "secret1"},
			wantMessage: "license key is required",
		},
		{
			name:        "unknown_key",
			body:        model.ValidateInput{LicenseKey: "LIC-00000000000000-0000", Username: "alice", Password: "secret1"},
			wantMessage: "license not found",
		},
		{
			name:        "short_password",
			body:        model.ValidateInput{LicenseKey: blocked.Key, Username: "alice", Password: "123"},
			wantMessage: "password must be between 6 and 32 characters",
		},
		{
			name:        "blocked",
			body:        model.ValidateInput{LicenseKey: blocked.Key, Username: "alice", Password: "secret1"},
			wantMessage: "license is blocked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodPost, "/api/license/validate", tt.body, "")
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			out := decode(t, resp)
			assert.Equal(t, false, out["valid"])
			assert.Equal(t, tt.wantMessage, out["message"])
		})
	}
}

func TestHandleLicenseAdminLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := srv.adminToken(t)
	lic := srv.issue(t, model.IssueInput{HWID: "HW-1"})

	resp := srv.do(t, http.MethodGet, "/api/license/details/"+lic.Key, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lic.Key, decode(t, resp)["key"])

	newExp := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	resp = srv.do(t, http.MethodPost, "/api/license/renew/"+lic.Key, model.RenewInput{NewExpiration: &newExp}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/license/renew/"+lic.Key, map[string]string{}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, path := range []string{"/api/license/block/", "/api/license/unblock/", "/api/license/reset-hwid/"} {
		resp = srv.do(t, http.MethodPost, path+lic.Key, nil, token)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	got, err := srv.licenses.Get(lic.Key)
	require.NoError(t, err)
	assert.True(t, got.Expiration.Equal(newExp))
	assert.False(t, got.Blocked)
	assert.Empty(t, got.HWID)

	types := make([]string, 0, len(got.History))
	performers := make([]string, 0, len(got.History))
	for _, e := range got.History {
		types = append(types, e.EventType)
		performers = append(performers, e.PerformedBy)
	}
	assert.Equal(t, []string{
		model.EventCreated, model.EventRenewed, model.EventBlocked, model.EventUnblocked, model.EventHWIDReset,
	}, types)
	assert.Equal(t, []string{"API", testAdminUser, testAdminUser, testAdminUser, testAdminUser}, performers)

	resp = srv.do(t, http.MethodDelete, "/api/license/remove/"+lic.Key, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/api/license/details/"+lic.Key, nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "license not found", decode(t, resp)["error"])

	resp = srv.do(t, http.MethodPost, "/api/license/block/"+lic.Key, nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleLicenseList(t *testing.T) {
	srv := newTestServer(t)
	token := srv.adminToken(t)

	past := time.Now().Add(-time.Hour)
	srv.issue(t, model.IssueInput{})
	srv.issue(t, model.IssueInput{Expiration: &past})
	blocked := srv.issue(t, model.IssueInput{})
	require.NoError(t, srv.licenses.Block(blocked.Key, ""))

	tests := []struct {
		path       string
		wantStatus int
		wantTotal  float64
	}{
		{path: "/api/license/list", wantStatus: http.StatusOK, wantTotal: 3},
		{path: "/api/license/list-advanced", wantStatus: http.StatusOK, wantTotal: 3},
		{path: "/api/license/list-advanced?filter=valid", wantStatus: http.StatusOK, wantTotal: 1},
		{path: "/api/license/list-advanced?filter=EXPIRED", wantStatus: http.StatusOK, wantTotal: 1},
		{path: "/api/license/list-advanced?filter=blocked", wantStatus: http.StatusOK, wantTotal: 1},
		{path: "/api/license/list-advanced?filter=used", wantStatus: http.StatusOK, wantTotal: 0},
		{path: "/api/license/list-advanced?filter=bogus", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := srv.do(t, http.MethodGet, tt.path, nil, token)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantTotal, decode(t, resp)["total"])
			}
		})
	}
}

func TestHandleLicenseSyncWithoutMirror(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/api/license/sync", nil, srv.adminToken(t))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "license mirror is not configured", decode(t, resp)["error"])
}
