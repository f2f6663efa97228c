// Package auth exposes the signed-in user to the rest of the CLI.
package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
)

// Session identifies the current user
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// Authenticated reports whether the session belongs to a user
func (s *Session) Authenticated() bool {
	return s != nil && strings.TrimSpace(s.UserID) != ""
}

// Provider resolves the session of the caller
type Provider interface {
	CurrentSession(ctx context.Context) (*Session, error)
}

// StaticProvider serves one configured session
type StaticProvider struct {
	session Session
}

// NewStaticProvider creates a provider. An empty userID means nobody is signed in.
func NewStaticProvider(userID, email, role string) *StaticProvider {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = RoleUser
	}
	return &StaticProvider{session: Session{
		UserID: strings.TrimSpace(userID),
		Email:  strings.TrimSpace(email),
		Role:   role,
	}}
}

func (p *StaticProvider) CurrentSession(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.session.Authenticated() {
		return nil, errors.Wrap(ErrNotAuthenticated, "set auth.user_id in the config file or FIAT_RAMP_AUTH_USER_ID")
	}
	session := p.session
	return &session, nil
}

// RequireRole fails unless session is authenticated with role
func RequireRole(session *Session, role string) error {
	if !session.Authenticated() {
		return ErrNotAuthenticated
	}
	if !strings.EqualFold(session.Role, role) {
		return errors.Wrapf(ErrForbidden, "role %q required, have %q", role, session.Role)
	}
	return nil
}
