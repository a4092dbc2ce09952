// Package credential holds the bearer token used for all collaborator
// calls. The token is owned by the authentication shell; this package only
// stores it, persists it across runs, and inspects its expiry claim so an
// obviously dead credential fails fast instead of bouncing off the server.
package credential

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired marks a token whose exp claim is in the past.
var ErrExpired = errors.New("credential expired")

// Store is a concurrency-safe bearer token holder with optional file
// persistence. The zero value is usable as a purely in-memory store.
type Store struct {
	mu    sync.RWMutex
	token string
	path  string
}

// NewStore creates a Store persisting to path. An empty path disables
// persistence. The token file is loaded eagerly if present.
func NewStore(path string) *Store {
	s := &Store{path: path}
	if path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			s.token = strings.TrimSpace(string(raw))
		}
	}
	return s
}

// Token returns the held bearer token, or "" when none is held.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the held token and flushes it to disk when persistence is
// configured.
func (s *Store) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0o600)
}

// Clear drops the held token and removes the persisted copy.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if s.path != "" {
		_ = os.Remove(s.path)
	}
}

// Subject returns the token's sub claim, used as a stable per-student
// reference for attempt store keys. Empty when no token is held or the
// token carries no subject.
func (s *Store) Subject() string {
	token := s.Token()
	if token == "" {
		return ""
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// Check validates that a token is held and not past its exp claim.
// The signature is NOT verified — the client holds no signing secret; the
// server remains the authority. This is a pre-flight check only, so a
// token without a parseable exp claim passes.
func (s *Store) Check(now time.Time) error {
	token := s.Token()
	if token == "" {
		return errors.New("no credential held")
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil // opaque token, let the server judge it
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return ErrExpired
	}
	return nil
}
