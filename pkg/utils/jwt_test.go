package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	signed, claims, err := issuer.GenerateToken(7, "tia@example.com", "tutor")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.TokenID)

	got, err := issuer.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.UserID)
	assert.Equal(t, "tutor", got.Role)
	assert.Equal(t, claims.TokenID, got.TokenID)
	assert.WithinDuration(t, claims.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	signed, _, err := NewTokenIssuer("one", time.Hour).GenerateToken(1, "a@example.com", "student")
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, _, err := issuer.GenerateToken(1, "a@example.com", "student")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Minute).ValidateToken(signed)
	assert.Error(t, err)
}

func TestEachTokenHasUniqueID(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	_, a, err := issuer.GenerateToken(1, "a@example.com", "student")
	require.NoError(t, err)
	_, b, err := issuer.GenerateToken(1, "a@example.com", "student")
	require.NoError(t, err)
	assert.NotEqual(t, a.TokenID, b.TokenID)
}
