package service

import (
	"errors"
	"fmt"
	"strings"
)

// LoginRequest is a session login attempt. HardwareID is optional.
type LoginRequest struct {
	Username   string
	Password   string
	HardwareID string
	SourceIP   string
}

// Session identifies an authenticated caller.
type Session struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// AuthService logs callers in. Non-admin users must own a usable license.
type AuthService struct {
	credentials *CredentialStore
	licenses    *LicenseStore
	notifier    Notifier
}

func NewAuthService(credentials *CredentialStore, licenses *LicenseStore, notifier Notifier) *AuthService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AuthService{credentials: credentials, licenses: licenses, notifier: notifier}
}

// Login authenticates req. Credential and license checks take the two
// collection locks one after the other, never nested. Login never appends
// license history.
func (a *AuthService) Login(req LoginRequest) (Session, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		a.notifier.Notify(NotifyLoginFailed, "login attempt with empty fields", req.SourceIP)
		return Session{}, invalidInput("username and password are required")
	}

	cred, err := a.credentials.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMismatch) {
			a.notifier.Notify(NotifyLoginFailed, fmt.Sprintf("failed login for user %s", req.Username), req.SourceIP)
			return Session{}, ErrBadCredentials
		}
		return Session{}, err
	}

	if a.credentials.IsAdmin(cred.Username) {
		a.notifier.Notify(NotifyLoginSuccess, fmt.Sprintf("admin %s logged in", cred.Username), req.SourceIP)
		return Session{Username: cred.Username, Admin: true}, nil
	}

	lic, err := a.licenses.FindByOwner(cred.Username)
	if err != nil {
		return Session{}, err
	}
	now := a.licenses.now().UTC()
	switch {
	case lic.Blocked:
		return Session{}, ErrBlocked
	case lic.IsExpired(now):
		return Session{}, ErrExpired
	case lic.HWIDConflicts(req.HardwareID):
		return Session{}, ErrHardwareMismatch
	}

	a.notifier.Notify(NotifyLoginSuccess, fmt.Sprintf("user %s logged in", cred.Username), req.SourceIP)
	return Session{Username: cred.Username, Admin: false}, nil
}
