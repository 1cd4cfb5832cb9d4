package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgibisch/doit2-sub002/pkg/config"
)

func newAuth(secret string) AuthUsecase {
	return NewAuthUsecase(&config.Config{
		Env:       "dev",
		JWTSecret: secret,
		JWTExpiry: time.Hour,
	}, nil)
}

func TestDevTokenRoundTrip(t *testing.T) {
	auth := newAuth("test-secret")

	token, err := auth.IssueDevToken("alice", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)
	assert.Equal(t, "Alice", identity.Name)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	auth := newAuth("test-secret")

	_, err := auth.ValidateToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := newAuth("secret-a").IssueDevToken("alice", "Alice")
	require.NoError(t, err)

	_, err = newAuth("secret-b").ValidateToken(context.Background(), token)
	assert.Error(t, err)
}
