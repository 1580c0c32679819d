// Package session holds the authenticated session context handed to the
// gateway client, and its persistence.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned by a Store when nothing has been saved.
var ErrNoSession = errors.New("no saved session")

// User identifies the signed-in user.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Session is the bearer token plus what is known about its holder.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Server    string    `json:"server,omitempty"`
}

// IsExpired returns true if the token expires within margin. Sessions
// without a known expiry never expire locally.
func (s *Session) IsExpired(margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(s.ExpiresAt)
}

// BearerToken returns the token, or "" for a nil session.
func (s *Session) BearerToken() string {
	if s == nil {
		return ""
	}
	return s.Token
}

// FromToken builds a session from a JWT issued by the auth service. The
// signature is not checked here; the gateway verifies every request.
func FromToken(token string) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	s := &Session{Token: token}
	if sub, err := claims.GetSubject(); err == nil {
		s.User.ID = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if name, ok := claims["name"].(string); ok {
		s.User.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		s.User.Email = email
	}
	return s, nil
}

// New returns a session for token, reading its claims when it is a JWT and
// treating it as opaque otherwise.
func New(token, server string) *Session {
	s, err := FromToken(token)
	if err != nil {
		s = &Session{Token: token}
	}
	s.Server = server
	return s
}
