package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/wbs/internal/infrastructure/config"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
)

func newAuth(clock *fakeClock) *AuthService {
	return NewAuthService(config.JWTConfig{
		Secret:    "test-secret",
		ExpiresIn: time.Hour,
		Issuer:    "wbs-test",
	}, logger.NewNop()).WithClock(clock.Now)
}

func TestAuthService_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	auth := newAuth(clock)
	userID := uuid.New()

	token, expiresAt, err := auth.IssueToken(userID)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(clock.Now()))

	got, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestAuthService_RejectsExpired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	auth := newAuth(clock)

	token, _, err := auth.IssueToken(uuid.New())
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsForeignTokens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	auth := newAuth(clock)

	other := NewAuthService(config.JWTConfig{Secret: "other", ExpiresIn: time.Hour, Issuer: "wbs-test"}, logger.NewNop())
	token, _, err := other.IssueToken(uuid.New())
	require.NoError(t, err)
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "wbs-test",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}})
	signed, err := noSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = auth.IssueToken(uuid.Nil)
	assert.Error(t, err)
}
