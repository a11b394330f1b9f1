// Package mocks provides testify mock implementations of the model
// store interfaces for service and handler tests.
package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/zkvault/zkvault-server/internal/model"
)

// IdentityStore mocks model.IdentityStore.
type IdentityStore struct {
	mock.Mock
}

var _ model.IdentityStore = (*IdentityStore)(nil)

func (m *IdentityStore) GetByEmail(ctx context.Context, email string) (model.Identity, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) GetByID(ctx context.Context, id uuid.UUID) (model.Identity, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) Create(ctx context.Context, identity model.Identity) (model.Identity, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) UpdateSalt(ctx context.Context, id uuid.UUID, salt []byte) error {
	args := m.Called(ctx, id, salt)
	return args.Error(0)
}

// CredentialStore mocks model.CredentialStore.
type CredentialStore struct {
	mock.Mock
}

var _ model.CredentialStore = (*CredentialStore)(nil)

func (m *CredentialStore) GetByCredentialID(ctx context.Context, credentialID string) (model.CredentialRecord, error) {
	args := m.Called(ctx, credentialID)
	return args.Get(0).(model.CredentialRecord), args.Error(1)
}

func (m *CredentialStore) GetByIdentity(ctx context.Context, identityID uuid.UUID) ([]model.CredentialRecord, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CredentialRecord), args.Error(1)
}

func (m *CredentialStore) Create(ctx context.Context, record model.CredentialRecord) (model.CredentialRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(model.CredentialRecord), args.Error(1)
}

func (m *CredentialStore) UpdateSignCounter(ctx context.Context, credentialID string, counter uint32) error {
	args := m.Called(ctx, credentialID, counter)
	return args.Error(0)
}

// ChallengeStore mocks model.ChallengeStore.
type ChallengeStore struct {
	mock.Mock
}

var _ model.ChallengeStore = (*ChallengeStore)(nil)

func (m *ChallengeStore) Put(ctx context.Context, challenge model.Challenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *ChallengeStore) Take(ctx context.Context, identityID uuid.UUID, ceremony model.Ceremony) (model.Challenge, error) {
	args := m.Called(ctx, identityID, ceremony)
	return args.Get(0).(model.Challenge), args.Error(1)
}

// ItemStore mocks model.ItemStore.
type ItemStore struct {
	mock.Mock
}

var _ model.ItemStore = (*ItemStore)(nil)

func (m *ItemStore) Upsert(ctx context.Context, item model.VaultItem) (model.VaultItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(model.VaultItem), args.Error(1)
}

func (m *ItemStore) GetByIDs(ctx context.Context, identityID uuid.UUID, ids []uuid.UUID) ([]model.VaultItem, error) {
	args := m.Called(ctx, identityID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VaultItem), args.Error(1)
}

func (m *ItemStore) GetManifest(ctx context.Context, identityID uuid.UUID) ([]model.ManifestEntry, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ManifestEntry), args.Error(1)
}

func (m *ItemStore) GetAll(ctx context.Context, identityID uuid.UUID) ([]model.VaultItem, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VaultItem), args.Error(1)
}

func (m *ItemStore) Delete(ctx context.Context, identityID uuid.UUID, id uuid.UUID) error {
	args := m.Called(ctx, identityID, id)
	return args.Error(0)
}

// RotationStore mocks model.RotationStore.
type RotationStore struct {
	mock.Mock
}

var _ model.RotationStore = (*RotationStore)(nil)

func (m *RotationStore) RotateSalt(ctx context.Context, identityID uuid.UUID, salt []byte, items []model.VaultItem) error {
	args := m.Called(ctx, identityID, salt, items)
	return args.Error(0)
}

// RefreshTokenStore mocks model.RefreshTokenStore.
type RefreshTokenStore struct {
	mock.Mock
}

var _ model.RefreshTokenStore = (*RefreshTokenStore)(nil)

func (m *RefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenStore) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	args := m.Called(ctx, jti)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) RevokeByJTI(ctx context.Context, jti string) error {
	args := m.Called(ctx, jti)
	return args.Error(0)
}

func (m *RefreshTokenStore) RevokeAllByIdentity(ctx context.Context, identityID uuid.UUID) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

// TokenManager mocks model.TokenManager.
type TokenManager struct {
	mock.Mock
}

var _ model.TokenManager = (*TokenManager)(nil)

func (m *TokenManager) GenerateAccessToken(identityID uuid.UUID) (string, error) {
	args := m.Called(identityID)
	return args.String(0), args.Error(1)
}

func (m *TokenManager) GenerateRefreshToken(identityID uuid.UUID) (string, string, error) {
	args := m.Called(identityID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *TokenManager) ParseAccessToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *TokenManager) ParseRefreshToken(token string) (uuid.UUID, string, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.String(1), args.Error(2)
}

// Storage mocks model.Storage.
type Storage struct {
	mock.Mock
}

var _ model.Storage = (*Storage)(nil)

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader) error {
	args := m.Called(ctx, key, reader)
	return args.Error(0)
}

func (m *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *Storage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
