package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("printer-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "printer-pass", hash)
	assert.Equal(t, "$2a$", hash[:4])
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword("correct-horse", hash))
	assert.False(t, CheckPassword("wrong-horse", hash))
	assert.False(t, CheckPassword("", hash))
	assert.False(t, CheckPassword("correct-horse", ""))
}

func TestCheckPasswordKnownHash(t *testing.T) {
	// bcrypt of "changeme" at cost 10
	known := "$2a$10$uejoNCSLZ9YkKOZriLlSGeg0pm/nuGVS3nRuSPyYuk/Z7HJHKBhGO"

	assert.True(t, CheckPassword("changeme", known))
	assert.False(t, CheckPassword("root", known))
}
