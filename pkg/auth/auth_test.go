package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider(" u-42 ", "ana@example.com", "")
	session, err := provider.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-42", session.UserID)
	assert.Equal(t, RoleUser, session.Role)

	// Callers get a copy
	session.Role = RoleAdmin
	again, err := provider.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RoleUser, again.Role)
}

func TestStaticProviderAnonymous(t *testing.T) {
	_, err := NewStaticProvider("", "", "admin").CurrentSession(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewStaticProvider("u-1", "", "").CurrentSession(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequireRole(t *testing.T) {
	assert.NoError(t, RequireRole(&Session{UserID: "u-1", Role: "Admin"}, RoleAdmin))
	assert.ErrorIs(t, RequireRole(&Session{UserID: "u-1", Role: RoleUser}, RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, RequireRole(nil, RoleAdmin), ErrNotAuthenticated)
	assert.ErrorIs(t, RequireRole(&Session{Role: RoleAdmin}, RoleAdmin), ErrNotAuthenticated)
}
