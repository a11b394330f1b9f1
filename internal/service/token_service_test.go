package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	servermocks "github.com/zkvault/zkvault-server/internal/mocks"
	"github.com/zkvault/zkvault-server/internal/model"
	"github.com/zkvault/zkvault-server/internal/testutil"
)

func newTokenService() (*TokenService, *servermocks.TokenManager, *servermocks.RefreshTokenStore) {
	manager := &servermocks.TokenManager{}
	store := &servermocks.RefreshTokenStore{}
	return NewTokenService(manager, store, testutil.MakeNoopLogger()), manager, store
}

func TestTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	s, manager, store := newTokenService()
	identityID := uuid.New()

	manager.On("GenerateAccessToken", identityID).Return("access", nil)
	manager.On("GenerateRefreshToken", identityID).Return("refresh", "jti-1", nil)

	var persisted model.RefreshToken
	store.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(1).(model.RefreshToken)
	}).Return(nil)

	access, refresh, err := s.Issue(ctx, identityID)
	require.NoError(t, err)
	assert.Equal(t, "access", access)
	assert.Equal(t, "refresh", refresh)
	assert.Equal(t, "jti-1", persisted.JTI)
	assert.Equal(t, identityID, persisted.IdentityID)
	assert.Equal(t, hashRefresh("refresh"), persisted.TokenHash)
	assert.Nil(t, persisted.RevokedAt)
}

func TestTokenService_Refresh_Rotates(t *testing.T) {
	ctx := context.Background()
	s, manager, store := newTokenService()
	identityID := uuid.New()
	now := time.Now()

	manager.On("ParseRefreshToken", "old-refresh").Return(identityID, "jti-old", nil)
	store.On("GetByJTI", mock.Anything, "jti-old").Return(model.RefreshToken{
		JTI:        "jti-old",
		IdentityID: identityID,
		TokenHash:  hashRefresh("old-refresh"),
		IssuedAt:   now.Add(-time.Hour),
		ExpiresAt:  now.Add(time.Hour),
	}, nil)
	store.On("RevokeByJTI", mock.Anything, "jti-old").Return(nil)
	manager.On("GenerateAccessToken", identityID).Return("new-access", nil)
	manager.On("GenerateRefreshToken", identityID).Return("new-refresh", "jti-new", nil)

	var persisted model.RefreshToken
	store.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(1).(model.RefreshToken)
	}).Return(nil)

	access, refresh, err := s.Refresh(ctx, "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", access)
	assert.Equal(t, "new-refresh", refresh)
	require.NotNil(t, persisted.RotatedFromJTI)
	assert.Equal(t, "jti-old", *persisted.RotatedFromJTI)
	store.AssertCalled(t, "RevokeByJTI", mock.Anything, "jti-old")
}

func TestTokenService_Refresh_Revoked(t *testing.T) {
	ctx := context.Background()
	s, manager, store := newTokenService()
	identityID := uuid.New()
	revokedAt := time.Now().Add(-time.Minute)

	manager.On("ParseRefreshToken", "old-refresh").Return(identityID, "jti-old", nil)
	store.On("GetByJTI", mock.Anything, "jti-old").Return(model.RefreshToken{
		JTI:       "jti-old",
		TokenHash: hashRefresh("old-refresh"),
		ExpiresAt: time.Now().Add(time.Hour),
		RevokedAt: &revokedAt,
	}, nil)

	_, _, err := s.Refresh(ctx, "old-refresh")
	assert.ErrorIs(t, err, model.ErrTokenRevoked)
	store.AssertNotCalled(t, "RevokeByJTI", mock.Anything, mock.Anything)
}

func TestTokenService_Refresh_Expired(t *testing.T) {
	ctx := context.Background()
	s, manager, store := newTokenService()
	identityID := uuid.New()

	manager.On("ParseRefreshToken", "old-refresh").Return(identityID, "jti-old", nil)
	store.On("GetByJTI", mock.Anything, "jti-old").Return(model.RefreshToken{
		JTI:       "jti-old",
		TokenHash: hashRefresh("old-refresh"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	_, _, err := s.Refresh(ctx, "old-refresh")
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenService_Refresh_HashMismatch(t *testing.T) {
	ctx := context.Background()
	s, manager, store := newTokenService()
	identityID := uuid.New()

	manager.On("ParseRefreshToken", "presented").Return(identityID, "jti-old", nil)
	store.On("GetByJTI", mock.Anything, "jti-old").Return(model.RefreshToken{
		JTI:       "jti-old",
		TokenHash: hashRefresh("a-different-token"),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	_, _, err := s.Refresh(ctx, "presented")
	assert.ErrorIs(t, err, model.ErrTokenMismatch)
}

func TestTokenService_RevokeByToken(t *testing.T) {
	ctx := context.Background()
	s, manager, store := newTokenService()

	manager.On("ParseRefreshToken", "refresh").Return(uuid.New(), "jti-1", nil)
	store.On("RevokeByJTI", mock.Anything, "jti-1").Return(nil)

	require.NoError(t, s.RevokeByToken(ctx, "refresh"))
	store.AssertExpectations(t)
}

func TestTokenService_GetIdentityID(t *testing.T) {
	ctx := context.Background()
	s, manager, _ := newTokenService()
	identityID := uuid.New()

	manager.On("ParseAccessToken", "access").Return(identityID, nil)

	got, err := s.GetIdentityID(ctx, "access")
	require.NoError(t, err)
	assert.Equal(t, identityID, got)
}
