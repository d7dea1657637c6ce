package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/course-api/internal/domain/entity"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("secret", 1, 30)
	require.NoError(t, err)
	user := &entity.User{ID: "u-1", DomainID: "d-1", Email: "a@example.com", Role: entity.UserRoleAdmin}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ParseToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "d-1", claims.DomainID)
	assert.Equal(t, entity.UserRoleAdmin, claims.Role)

	_, err = svc.ParseWSTicket(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_WSTicketNotAcceptedAsAccessToken(t *testing.T) {
	svc, err := NewJWTService("secret", 1, 30)
	require.NoError(t, err)
	ticket, err := svc.GenerateWSTicket(&entity.User{ID: "u-1", DomainID: "d-1"})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), ticket)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	claims, err := svc.ParseWSTicket(ticket)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
}

func TestJWTService_ExpiredAndForeignTokens(t *testing.T) {
	svc, err := NewJWTService("secret", 1, 30)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.GenerateToken(&entity.User{ID: "u-1", DomainID: "d-1"})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	other, err := NewJWTService("other-secret", 1, 30)
	require.NoError(t, err)
	foreign, err := other.GenerateToken(&entity.User{ID: "u-1", DomainID: "d-1"})
	require.NoError(t, err)
	_, err = svc.ParseToken(context.Background(), foreign)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ParseToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
