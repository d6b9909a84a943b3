package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator("access-secret", "refresh-secret", "storefront", "storefront", time.Hour, 24*time.Hour)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	a := newTestAuthenticator()

	access, refresh, err := a.GenerateTokens(42, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	token, err := a.ValidateAccessToken(access)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.EqualValues(t, 42, claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestAccessTokenRejectedByRefreshValidator(t *testing.T) {
	a := newTestAuthenticator()

	access, _, err := a.GenerateTokens(7, "customer")
	require.NoError(t, err)

	// Signed with a different secret, so validation must fail.
	_, err = a.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestValidateAccessTokenWrongAudience(t *testing.T) {
	other := NewJWTAuthenticator("access-secret", "refresh-secret", "other-app", "storefront", time.Hour, 24*time.Hour)
	access, _, err := other.GenerateTokens(7, "customer")
	require.NoError(t, err)

	a := newTestAuthenticator()
	_, err = a.ValidateAccessToken(access)
	assert.Error(t, err)
}

func TestValidateAccessTokenWrongIssuer(t *testing.T) {
	other := NewJWTAuthenticator("access-secret", "refresh-secret", "storefront", "someone-else", time.Hour, 24*time.Hour)
	access, _, err := other.GenerateTokens(7, "customer")
	require.NoError(t, err)

	a := newTestAuthenticator()
	_, err = a.ValidateAccessToken(access)
	assert.Error(t, err)
}
