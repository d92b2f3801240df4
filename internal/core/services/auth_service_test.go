package services

import (
	"testing"
	"time"

	"stagepass/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour)

	token, err := svc.GenerateToken("user-1")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("user-1"), claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestAuthService_Rejects(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour)

	other, err := NewAuthService("other-secret", time.Hour).GenerateToken("user-1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewAuthService("test-secret", -time.Minute).GenerateToken("user-1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := NewAuthService("test-secret", time.Hour).GenerateToken("")
	require.NoError(t, err)
	_, err = svc.ValidateToken(anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
