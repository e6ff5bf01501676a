// Package auth holds the session context passed to components that call the
// donation backend. It replaces the process-wide "current user" variable the
// original client kept next to persisted storage: the session object is the
// single source of truth and is injected explicitly, never cached globally.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no active session")
var ErrSessionExpired = errors.New("session token expired")

// TokenSource yields the bearer token to attach to backend calls.
// It fails once the token is expired; callers surface that instead of
// issuing requests doomed to 401.
type TokenSource interface {
	Token() (string, error)
}

// Session is a TokenSource backed by a JWT. Expiry is read from the token's
// exp claim when present; SetToken replaces the whole session atomically.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewSession returns an empty session. Token() fails with ErrNoSession until
// SetToken is called.
func NewSession() *Session {
	return &Session{now: time.Now}
}

// SetToken installs a bearer token. The expiry is parsed from the JWT's exp
// claim without verifying the signature — the backend is the verifier; the
// client only needs the expiry contract. Tokens without an exp claim never
// expire locally.
func (s *Session) SetToken(token string) error {
	var expiresAt time.Time

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return err
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()
	return nil
}

// Clear drops the session.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// clock falls back to the wall clock so a zero-value Session still works.
func (s *Session) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Token returns the bearer token, or an error when none is set or it expired.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", ErrNoSession
	}
	if !s.expiresAt.IsZero() && !s.clock().Before(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.token, nil
}

// Remaining reports how long until the token expires; zero when there is no
// expiry or no session.
func (s *Session) Remaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" || s.expiresAt.IsZero() {
		return 0
	}
	if d := s.expiresAt.Sub(s.clock()); d > 0 {
		return d
	}
	return 0
}

// StaticToken is a TokenSource for service-to-service tokens that are managed
// outside the session lifecycle (for example issued by the deployment).
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNoSession
	}
	return string(t), nil
}
