package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"license-binding-server/internal/database"
	"license-binding-server/internal/model"
)

// UsersCollection is the collection name of the credential store.
const UsersCollection = "users"

var errPasswordMismatch = reason(ErrMismatch, "password does not match")

// AdminCredential is the reserved administrator account, configured outside the store.
type AdminCredential struct {
	Username string
	Password string
}

// CredentialStore owns the registered users.
type CredentialStore struct {
	users     *database.Collection[model.Credential]
	adminName string
	adminHash []byte
}

// NewCredentialStore builds a store over backend. An empty admin password disables admin login.
func NewCredentialStore(backend database.Backend, admin AdminCredential) (*CredentialStore, error) {
	s := &CredentialStore{
		users:     database.NewCollection[model.Credential](UsersCollection, backend),
		adminName: admin.Username,
	}
	if admin.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		s.adminHash = hash
	}
	return s, nil
}

// IsAdmin reports whether username names the reserved administrator.
func (s *CredentialStore) IsAdmin(username string) bool {
	return s.adminName != "" && strings.EqualFold(username, s.adminName)
}

// Register stores a new user. Usernames are unique case-insensitively and may
// not collide with the administrator name.
func (s *CredentialStore) Register(username, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return invalidInput("username and password are required")
	}
	if s.IsAdmin(username) {
		return ErrUserExists
	}

	return s.users.Update(func(tx *database.Tx[model.Credential]) error {
		if indexOfUser(tx.Items, username) >= 0 {
			return ErrUserExists
		}
		tx.Items = append(tx.Items, model.Credential{
			Username:     username,
			PasswordHash: HashPassword(password),
		})
		tx.MarkDirty()
		return nil
	})
}

// Authenticate checks a username and password. The administrator pair is
// checked before the store is consulted.
func (s *CredentialStore) Authenticate(username, password string) (model.Credential, error) {
	if s.IsAdmin(username) {
		if s.adminHash == nil || bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)) != nil {
			return model.Credential{}, errPasswordMismatch
		}
		return model.Credential{Username: s.adminName}, nil
	}

	var found model.Credential
	err := s.users.View(func(items []model.Credential) error {
		i := indexOfUser(items, username)
		if i < 0 {
			return ErrUserNotFound
		}
		found = items[i]
		return nil
	})
	if err != nil {
		return model.Credential{}, err
	}

	want := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(found.PasswordHash), []byte(want)) != 1 {
		return model.Credential{}, errPasswordMismatch
	}
	return found, nil
}

// List returns every registered user in registration order.
func (s *CredentialStore) List() ([]model.Credential, error) {
	return s.users.Load()
}

// Remove deletes a user. Licenses owned by the user are left untouched.
func (s *CredentialStore) Remove(username string) error {
	if s.IsAdmin(username) {
		return invalidInput("the administrator cannot be removed")
	}
	return s.users.Update(func(tx *database.Tx[model.Credential]) error {
		i := indexOfUser(tx.Items, username)
		if i < 0 {
			return ErrUserNotFound
		}
		tx.Items = slices.Delete(tx.Items, i, i+1)
		tx.MarkDirty()
		return nil
	})
}

// HashPassword returns base64(SHA-256(password)). The digest is unsalted.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func indexOfUser(items []model.Credential, username string) int {
	return slices.IndexFunc(items, func(c model.Credential) bool {
		return strings.EqualFold(c.Username, username)
	})
}
