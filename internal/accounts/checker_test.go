package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissive(t *testing.T) {
	ctx := context.Background()
	var c Permissive

	assert.NoError(t, c.Check(ctx, "alice", "anything"))
	assert.ErrorIs(t, c.Check(ctx, "", "anything"), ErrInvalidCredentials)
	assert.ErrorIs(t, c.Check(ctx, "alice", ""), ErrInvalidCredentials)
}

func TestValidateBackend(t *testing.T) {
	assert.NoError(t, ValidateBackend(BackendPermissive))
	assert.NoError(t, ValidateBackend(BackendPostgres))
	assert.NoError(t, ValidateBackend(BackendToken))
	assert.Error(t, ValidateBackend("ldap"))
}

func TestTokenChecker(t *testing.T) {
	secret := "shared-secret"
	c, err := NewTokenChecker(secret)
	require.NoError(t, err)

	token, err := GenerateToken([]byte(secret), "alice", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, c.Check(ctx, "alice", token))
	assert.ErrorIs(t, c.Check(ctx, "bob", token), ErrInvalidCredentials)
	assert.ErrorIs(t, c.Check(ctx, "alice", "not-a-token"), ErrInvalidCredentials)
	assert.ErrorIs(t, c.Check(ctx, "", token), ErrInvalidCredentials)
}

func TestTokenCheckerRejectsOtherSecret(t *testing.T) {
	c, err := NewTokenChecker("right")
	require.NoError(t, err)

	token, err := GenerateToken([]byte("wrong"), "alice", time.Hour)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Check(context.Background(), "alice", token), ErrInvalidCredentials)
}

func TestTokenCheckerRejectsExpired(t *testing.T) {
	c, err := NewTokenChecker("secret")
	require.NoError(t, err)

	token, err := GenerateToken([]byte("secret"), "alice", -time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Check(context.Background(), "alice", token), ErrInvalidCredentials)
}

func TestTokenCheckerRequiresExpiry(t *testing.T) {
	c, err := NewTokenChecker("secret")
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "alice"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	assert.ErrorIs(t, c.Check(context.Background(), "alice", token), ErrInvalidCredentials)
}

func TestNewTokenCheckerRequiresSecret(t *testing.T) {
	_, err := NewTokenChecker("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
