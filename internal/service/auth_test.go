package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	servermocks "github.com/zkvault/zkvault-server/internal/mocks"
	"github.com/zkvault/zkvault-server/internal/model"
	"github.com/zkvault/zkvault-server/internal/testutil"
	"github.com/zkvault/zkvault-server/internal/webauthn"
)

type authMocks struct {
	identityStore   *servermocks.IdentityStore
	credentialStore *servermocks.CredentialStore
	challengeStore  *servermocks.ChallengeStore
	rotationStore   *servermocks.RotationStore
	refreshStore    *servermocks.RefreshTokenStore
	tokMan          *servermocks.TokenManager
}

func newAuthMocks() *authMocks {
	return &authMocks{
		identityStore:   &servermocks.IdentityStore{},
		credentialStore: &servermocks.CredentialStore{},
		challengeStore:  &servermocks.ChallengeStore{},
		rotationStore:   &servermocks.RotationStore{},
		refreshStore:    &servermocks.RefreshTokenStore{},
		tokMan:          &servermocks.TokenManager{},
	}
}

func (m *authMocks) service() *Auth {
	return NewAuth(
		m.identityStore, m.credentialStore, m.challengeStore, m.rotationStore,
		m.refreshStore, testutil.MakeNoopLogger(), m.tokMan,
		webauthn.RelyingParty{ID: "localhost", Name: "zkvault"},
	)
}

func (m *authMocks) expectIssue(identityID uuid.UUID) {
	m.tokMan.On("GenerateAccessToken", identityID).Return("access-token", nil)
	m.tokMan.On("GenerateRefreshToken", identityID).Return("refresh-token", "jti-1", nil)
	m.refreshStore.On("Create", mock.Anything, mock.Anything).Return(nil)
}

func mustKeyPair(t *testing.T) webauthn.KeyPair {
	t.Helper()
	kp, err := webauthn.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestAuth_StartRegistration_NewIdentity(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	created := model.Identity{ID: uuid.New(), Email: "a@b.c"}
	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(model.Identity{}, model.ErrNotFound)
	m.identityStore.On("Create", mock.Anything, mock.Anything).Return(created, nil)
	m.challengeStore.On("Put", mock.Anything, mock.MatchedBy(func(ch model.Challenge) bool {
		return ch.Ceremony == model.CeremonyRegistration && len(ch.Nonce) == challengeNonceSize
	})).Return(nil)

	options, err := m.service().StartRegistration(ctx, "a@b.c")
	require.NoError(t, err)
	assert.NotEmpty(t, options.Challenge)
	assert.Equal(t, "localhost", options.RelyingParty.ID)
	assert.Equal(t, "a@b.c", options.User.Name)
	m.challengeStore.AssertExpectations(t)
}

func TestAuth_StartRegistration_ExistingIdentity(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Put", mock.Anything, mock.Anything).Return(nil)

	options, err := m.service().StartRegistration(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, identity.ID.String(), options.User.ID)
	m.identityStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuth_CompleteRegistration_Success(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	kp := mustKeyPair(t)
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}
	nonce := []byte("registration-challenge-nonce-001")

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyRegistration).Return(model.Challenge{
		IdentityID: identity.ID,
		Ceremony:   model.CeremonyRegistration,
		Nonce:      nonce,
		ExpiresAt:  time.Now().Add(time.Minute),
	}, nil)
	m.credentialStore.On("GetByCredentialID", mock.Anything, "cred-1").Return(model.CredentialRecord{}, model.ErrNotFound)
	m.credentialStore.On("Create", mock.Anything, mock.Anything).Return(model.CredentialRecord{}, nil)
	m.identityStore.On("UpdateSalt", mock.Anything, identity.ID, mock.Anything).Return(nil)
	m.expectIssue(identity.ID)

	result, err := m.service().CompleteRegistration(ctx, "a@b.c", kp.SignRegistration("cred-1", nonce))
	require.NoError(t, err)
	assert.Equal(t, "access-token", result.AccessToken)
	assert.Equal(t, "refresh-token", result.RefreshToken)

	salt, err := base64.StdEncoding.DecodeString(result.ServerSalt)
	require.NoError(t, err)
	assert.Len(t, salt, 16)
}

func TestAuth_CompleteRegistration_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.identityStore.On("GetByEmail", mock.Anything, "nobody@b.c").Return(model.Identity{}, model.ErrNotFound)

	_, err := m.service().CompleteRegistration(ctx, "nobody@b.c", webauthn.RegistrationProof{})
	assert.ErrorIs(t, err, model.ErrNoPendingChallenge)
}

func TestAuth_CompleteRegistration_BadProofConsumesChallenge(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	kp := mustKeyPair(t)
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}
	nonce := []byte("registration-challenge-nonce-001")

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyRegistration).Return(model.Challenge{
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil).Once()

	// Proof signed over a different nonce does not verify.
	proof := kp.SignRegistration("cred-1", []byte("some-other-nonce-entirely-000000"))
	_, err := m.service().CompleteRegistration(ctx, "a@b.c", proof)
	assert.ErrorIs(t, err, model.ErrProofInvalid)
	m.challengeStore.AssertExpectations(t)
	m.credentialStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuth_CompleteRegistration_ReenrollSameCredential(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	kp := mustKeyPair(t)
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c", KeyDerivationSalt: []byte("0123456789abcdef")}
	nonce := []byte("registration-challenge-nonce-001")

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyRegistration).Return(model.Challenge{
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil)
	m.credentialStore.On("GetByCredentialID", mock.Anything, "cred-1").Return(model.CredentialRecord{
		IdentityID:   identity.ID,
		CredentialID: "cred-1",
		PublicKey:    []byte(kp.PublicKey),
	}, nil)
	m.expectIssue(identity.ID)

	result, err := m.service().CompleteRegistration(ctx, "a@b.c", kp.SignRegistration("cred-1", nonce))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(identity.KeyDerivationSalt), result.ServerSalt)
	m.credentialStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.identityStore.AssertNotCalled(t, "UpdateSalt", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_CompleteRegistration_CredentialConflict(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	kp := mustKeyPair(t)
	other := mustKeyPair(t)
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}
	nonce := []byte("registration-challenge-nonce-001")

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyRegistration).Return(model.Challenge{
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil)
	// Same credential id already enrolled with a different key.
	m.credentialStore.On("GetByCredentialID", mock.Anything, "cred-1").Return(model.CredentialRecord{
		IdentityID:   identity.ID,
		CredentialID: "cred-1",
		PublicKey:    []byte(other.PublicKey),
	}, nil)

	_, err := m.service().CompleteRegistration(ctx, "a@b.c", kp.SignRegistration("cred-1", nonce))
	assert.ErrorIs(t, err, model.ErrIdentityConflict)
}

func TestAuth_StartAuthentication_UnknownIdentity(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.identityStore.On("GetByEmail", mock.Anything, "nobody@b.c").Return(model.Identity{}, model.ErrNotFound)

	_, err := m.service().StartAuthentication(ctx, "nobody@b.c")
	assert.ErrorIs(t, err, model.ErrIdentityNotFound)
}

func TestAuth_StartAuthentication_NoCredentials(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.credentialStore.On("GetByIdentity", mock.Anything, identity.ID).Return([]model.CredentialRecord{}, nil)

	_, err := m.service().StartAuthentication(ctx, "a@b.c")
	assert.ErrorIs(t, err, model.ErrIdentityNotFound)
}

func TestAuth_StartAuthentication_Success(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.credentialStore.On("GetByIdentity", mock.Anything, identity.ID).Return([]model.CredentialRecord{
		{CredentialID: "cred-1"},
		{CredentialID: "cred-2"},
	}, nil)
	m.challengeStore.On("Put", mock.Anything, mock.MatchedBy(func(ch model.Challenge) bool {
		return ch.Ceremony == model.CeremonyLogin && ch.IdentityID == identity.ID
	})).Return(nil)

	options, err := m.service().StartAuthentication(ctx, "a@b.c")
	require.NoError(t, err)
	assert.NotEmpty(t, options.Challenge)
	assert.Equal(t, "localhost", options.RelyingPartyID)
	assert.Equal(t, []string{"cred-1", "cred-2"}, options.AllowCredentials)
}

func TestAuth_CompleteAuthentication_Success(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	kp := mustKeyPair(t)
	salt := []byte("0123456789abcdef")
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c", KeyDerivationSalt: salt}
	nonce := []byte("login-challenge-nonce-0000000001")

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyLogin).Return(model.Challenge{
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil)
	m.credentialStore.On("GetByCredentialID", mock.Anything, "cred-1").Return(model.CredentialRecord{
		IdentityID:   identity.ID,
		CredentialID: "cred-1",
		PublicKey:    []byte(kp.PublicKey),
		SignCounter:  4,
	}, nil)
	m.credentialStore.On("UpdateSignCounter", mock.Anything, "cred-1", uint32(5)).Return(nil)
	m.expectIssue(identity.ID)

	result, err := m.service().CompleteAuthentication(ctx, "a@b.c", kp.SignAssertion("cred-1", nonce, 5))
	require.NoError(t, err)
	assert.Equal(t, "access-token", result.AccessToken)
	assert.Equal(t, base64.StdEncoding.EncodeToString(salt), result.ServerSalt)
	m.credentialStore.AssertExpectations(t)
}

func TestAuth_CompleteAuthentication_CloneDetected(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	kp := mustKeyPair(t)
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}
	nonce := []byte("login-challenge-nonce-0000000001")

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyLogin).Return(model.Challenge{
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil)
	m.credentialStore.On("GetByCredentialID", mock.Anything, "cred-1").Return(model.CredentialRecord{
		IdentityID:   identity.ID,
		CredentialID: "cred-1",
		PublicKey:    []byte(kp.PublicKey),
		SignCounter:  5,
	}, nil)

	// Cryptographically valid assertion, stale counter: still a clone.
	_, err := m.service().CompleteAuthentication(ctx, "a@b.c", kp.SignAssertion("cred-1", nonce, 5))
	assert.ErrorIs(t, err, model.ErrCloneDetected)
	m.credentialStore.AssertNotCalled(t, "UpdateSignCounter", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_CompleteAuthentication_ForeignCredential(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	kp := mustKeyPair(t)
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}
	nonce := []byte("login-challenge-nonce-0000000001")

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyLogin).Return(model.Challenge{
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil)
	m.credentialStore.On("GetByCredentialID", mock.Anything, "cred-1").Return(model.CredentialRecord{
		IdentityID:   uuid.New(),
		CredentialID: "cred-1",
		PublicKey:    []byte(kp.PublicKey),
	}, nil)

	_, err := m.service().CompleteAuthentication(ctx, "a@b.c", kp.SignAssertion("cred-1", nonce, 1))
	assert.ErrorIs(t, err, model.ErrProofInvalid)
}

func TestAuth_CompleteAuthentication_NoPendingChallenge(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identity := model.Identity{ID: uuid.New(), Email: "a@b.c"}

	m.identityStore.On("GetByEmail", mock.Anything, "a@b.c").Return(identity, nil)
	m.challengeStore.On("Take", mock.Anything, identity.ID, model.CeremonyLogin).Return(model.Challenge{}, model.ErrNoPendingChallenge)

	_, err := m.service().CompleteAuthentication(ctx, "a@b.c", webauthn.AssertionProof{CredentialID: "cred-1"})
	assert.ErrorIs(t, err, model.ErrNoPendingChallenge)
}

func TestAuth_StartRotation(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identityID := uuid.New()

	var stored model.Challenge
	m.challengeStore.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(model.Challenge)
	}).Return(nil)

	saltB64, err := m.service().StartRotation(ctx, identityID)
	require.NoError(t, err)

	assert.Equal(t, model.CeremonyRotation, stored.Ceremony)
	assert.Equal(t, identityID, stored.IdentityID)
	assert.Len(t, stored.Nonce, 16)
	assert.Equal(t, base64.StdEncoding.EncodeToString(stored.Nonce), saltB64)
}

func TestAuth_CompleteRotation_Success(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identityID := uuid.New()
	salt := []byte("0123456789abcdef")
	itemID := uuid.New()

	m.challengeStore.On("Take", mock.Anything, identityID, model.CeremonyRotation).Return(model.Challenge{
		IdentityID: identityID,
		Ceremony:   model.CeremonyRotation,
		Nonce:      salt,
		ExpiresAt:  time.Now().Add(time.Minute),
	}, nil)
	m.rotationStore.On("RotateSalt", mock.Anything, identityID, salt, mock.MatchedBy(func(items []model.VaultItem) bool {
		return len(items) == 1 && items[0].ID == itemID && items[0].Envelope == "new-envelope"
	})).Return(nil)

	err := m.service().CompleteRotation(ctx, identityID, []model.ItemWrite{
		{ID: itemID, Type: model.ItemTypeLogin, Name: "mail", Envelope: "new-envelope"},
	})
	require.NoError(t, err)
	m.rotationStore.AssertExpectations(t)
}

func TestAuth_CompleteRotation_InvalidItemType(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identityID := uuid.New()

	m.challengeStore.On("Take", mock.Anything, identityID, model.CeremonyRotation).Return(model.Challenge{
		Nonce:     []byte("0123456789abcdef"),
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil)

	err := m.service().CompleteRotation(ctx, identityID, []model.ItemWrite{
		{ID: uuid.New(), Type: "bogus", Name: "x", Envelope: "e"},
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	m.rotationStore.AssertNotCalled(t, "RotateSalt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_CompleteRotation_NoPendingChallenge(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	identityID := uuid.New()

	m.challengeStore.On("Take", mock.Anything, identityID, model.CeremonyRotation).Return(model.Challenge{}, model.ErrNoPendingChallenge)

	err := m.service().CompleteRotation(ctx, identityID, nil)
	assert.ErrorIs(t, err, model.ErrNoPendingChallenge)
}
