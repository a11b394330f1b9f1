package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault-server/internal/crypto"
	"github.com/zkvault/zkvault-server/internal/logger"
	"github.com/zkvault/zkvault-server/internal/model"
	"github.com/zkvault/zkvault-server/internal/webauthn"
)

const challengeNonceSize = 32

// SessionResult is what a completed ceremony hands back to the client:
// session credentials plus the salt it needs to derive its vault key
// locally. The server never sees the derived key.
type SessionResult struct {
	AccessToken  string
	RefreshToken string
	ServerSalt   string
}

// Auth drives the registration and login ceremonies over single-use
// challenges and possession proofs.
type Auth struct {
	identityStore   model.IdentityStore
	credentialStore model.CredentialStore
	challengeStore  model.ChallengeStore
	rotationStore   model.RotationStore
	tokenService    *TokenService
	relyingParty    webauthn.RelyingParty
	logger          *logger.Logger
}

func NewAuth(
	identityStore model.IdentityStore,
	credentialStore model.CredentialStore,
	challengeStore model.ChallengeStore,
	rotationStore model.RotationStore,
	refreshTokenStore model.RefreshTokenStore,
	logger *logger.Logger,
	tokenManager model.TokenManager,
	relyingParty webauthn.RelyingParty,
) *Auth {
	return &Auth{
		identityStore:   identityStore,
		credentialStore: credentialStore,
		challengeStore:  challengeStore,
		rotationStore:   rotationStore,
		tokenService:    NewTokenService(tokenManager, refreshTokenStore, logger),
		relyingParty:    relyingParty,
		logger:          logger,
	}
}

// StartRegistration creates or reuses an identity for the email and
// issues a registration challenge.
func (a *Auth) StartRegistration(ctx context.Context, email string) (webauthn.CreationOptions, error) {
	a.logger.Debug("Auth service: starting registration", "email", email)

	identity, err := a.identityStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		identity, err = a.identityStore.Create(ctx, model.Identity{
			ID:        uuid.New(),
			Email:     email,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	}
	if err != nil {
		return webauthn.CreationOptions{}, fmt.Errorf("failed to resolve identity: %w", err)
	}

	nonce, err := newChallengeNonce()
	if err != nil {
		return webauthn.CreationOptions{}, err
	}

	err = a.challengeStore.Put(ctx, model.Challenge{
		IdentityID: identity.ID,
		Ceremony:   model.CeremonyRegistration,
		Nonce:      nonce,
		ExpiresAt:  time.Now().Add(model.ChallengeTTL),
	})
	if err != nil {
		return webauthn.CreationOptions{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	a.logger.Info("Auth service: registration started", "identity_id", identity.ID)

	return webauthn.CreationOptions{
		Challenge:    webauthn.EncodeChallenge(nonce),
		RelyingParty: a.relyingParty,
		User: webauthn.UserHandle{
			ID:   identity.ID.String(),
			Name: email,
		},
	}, nil
}

// CompleteRegistration consumes the pending registration challenge,
// verifies the possession proof, enrolls the credential, and issues the
// key derivation salt plus session credentials. The challenge is gone
// after this call whether or not the proof verified.
func (a *Auth) CompleteRegistration(ctx context.Context, email string, proof webauthn.RegistrationProof) (SessionResult, error) {
	a.logger.Debug("Auth service: completing registration", "email", email)

	identity, err := a.identityStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return SessionResult{}, model.ErrNoPendingChallenge
	}
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to get identity by email: %w", err)
	}

	ch, err := a.challengeStore.Take(ctx, identity.ID, model.CeremonyRegistration)
	if err != nil {
		return SessionResult{}, err
	}

	publicKey, err := webauthn.VerifyRegistration(proof, ch.Nonce)
	if err != nil {
		a.logger.Warn("Auth service: registration proof rejected",
			"identity_id", identity.ID,
			"error", err.Error())
		return SessionResult{}, err
	}

	if err := a.enrollCredential(ctx, identity.ID, proof, publicKey); err != nil {
		return SessionResult{}, err
	}

	salt := identity.KeyDerivationSalt
	if len(salt) == 0 {
		salt, err = crypto.GenerateSalt()
		if err != nil {
			return SessionResult{}, err
		}
		if err := a.identityStore.UpdateSalt(ctx, identity.ID, salt); err != nil {
			return SessionResult{}, fmt.Errorf("failed to persist salt: %w", err)
		}
	}

	access, refresh, err := a.tokenService.Issue(ctx, identity.ID)
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to issue session credentials: %w", err)
	}

	a.logger.Info("Auth service: registration completed", "identity_id", identity.ID)

	return SessionResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ServerSalt:   base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// StartAuthentication issues a login challenge for a registered email.
func (a *Auth) StartAuthentication(ctx context.Context, email string) (webauthn.RequestOptions, error) {
	a.logger.Debug("Auth service: starting authentication", "email", email)

	identity, err := a.identityStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return webauthn.RequestOptions{}, model.ErrIdentityNotFound
	}
	if err != nil {
		return webauthn.RequestOptions{}, fmt.Errorf("failed to get identity by email: %w", err)
	}

	credentials, err := a.credentialStore.GetByIdentity(ctx, identity.ID)
	if err != nil {
		return webauthn.RequestOptions{}, fmt.Errorf("failed to get credentials: %w", err)
	}
	if len(credentials) == 0 {
		return webauthn.RequestOptions{}, model.ErrIdentityNotFound
	}

	nonce, err := newChallengeNonce()
	if err != nil {
		return webauthn.RequestOptions{}, err
	}

	err = a.challengeStore.Put(ctx, model.Challenge{
		IdentityID: identity.ID,
		Ceremony:   model.CeremonyLogin,
		Nonce:      nonce,
		ExpiresAt:  time.Now().Add(model.ChallengeTTL),
	})
	if err != nil {
		return webauthn.RequestOptions{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	allowed := make([]string, 0, len(credentials))
	for _, c := range credentials {
		allowed = append(allowed, c.CredentialID)
	}

	a.logger.Info("Auth service: authentication started", "identity_id", identity.ID)

	return webauthn.RequestOptions{
		Challenge:        webauthn.EncodeChallenge(nonce),
		RelyingPartyID:   a.relyingParty.ID,
		AllowCredentials: allowed,
	}, nil
}

// CompleteAuthentication consumes the pending login challenge, enforces
// the sign counter invariant, verifies the assertion, and issues session
// credentials plus the identity's key derivation salt.
func (a *Auth) CompleteAuthentication(ctx context.Context, email string, proof webauthn.AssertionProof) (SessionResult, error) {
	a.logger.Debug("Auth service: completing authentication", "email", email)

	identity, err := a.identityStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return SessionResult{}, model.ErrIdentityNotFound
	}
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to get identity by email: %w", err)
	}

	ch, err := a.challengeStore.Take(ctx, identity.ID, model.CeremonyLogin)
	if err != nil {
		return SessionResult{}, err
	}

	credential, err := a.credentialStore.GetByCredentialID(ctx, proof.CredentialID)
	if errors.Is(err, model.ErrNotFound) {
		return SessionResult{}, model.ErrProofInvalid
	}
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to get credential: %w", err)
	}
	if credential.IdentityID != identity.ID {
		return SessionResult{}, model.ErrProofInvalid
	}

	// The counter invariant holds independently of proof validity: a
	// stale counter on an otherwise valid assertion still means a clone.
	if proof.SignCounter <= credential.SignCounter {
		a.logger.Error("Auth service: sign counter regression, possible cloned credential",
			"identity_id", identity.ID,
			"credential_id", credential.CredentialID,
			"stored_counter", credential.SignCounter,
			"presented_counter", proof.SignCounter)
		return SessionResult{}, model.ErrCloneDetected
	}

	if err := webauthn.VerifyAssertion(credential.PublicKey, proof, ch.Nonce); err != nil {
		a.logger.Warn("Auth service: assertion rejected",
			"identity_id", identity.ID,
			"error", err.Error())
		return SessionResult{}, err
	}

	if err := a.credentialStore.UpdateSignCounter(ctx, credential.CredentialID, proof.SignCounter); err != nil {
		return SessionResult{}, fmt.Errorf("failed to update sign counter: %w", err)
	}

	access, refresh, err := a.tokenService.Issue(ctx, identity.ID)
	if err != nil {
		return SessionResult{}, fmt.Errorf("failed to issue session credentials: %w", err)
	}

	a.logger.Info("Auth service: authentication completed", "identity_id", identity.ID)

	return SessionResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ServerSalt:   base64.StdEncoding.EncodeToString(identity.KeyDerivationSalt),
	}, nil
}

// StartRotation issues a candidate key derivation salt for a master
// password rotation. The candidate is held as a single-use rotation
// challenge; nothing on the identity changes until CompleteRotation.
func (a *Auth) StartRotation(ctx context.Context, identityID uuid.UUID) (string, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return "", err
	}

	err = a.challengeStore.Put(ctx, model.Challenge{
		IdentityID: identityID,
		Ceremony:   model.CeremonyRotation,
		Nonce:      salt,
		ExpiresAt:  time.Now().Add(model.ChallengeTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store rotation challenge: %w", err)
	}

	a.logger.Info("Auth service: rotation started", "identity_id", identityID)

	return base64.StdEncoding.EncodeToString(salt), nil
}

// CompleteRotation swaps in the candidate salt together with the full
// re-encrypted item set, atomically: either the new salt and every new
// envelope land, or nothing does.
func (a *Auth) CompleteRotation(ctx context.Context, identityID uuid.UUID, items []model.ItemWrite) error {
	ch, err := a.challengeStore.Take(ctx, identityID, model.CeremonyRotation)
	if err != nil {
		return err
	}

	now := time.Now()
	rotated := make([]model.VaultItem, 0, len(items))
	for _, item := range items {
		if !model.ValidItemType(item.Type) {
			return fmt.Errorf("%w: invalid item type %q", model.ErrInvalidInput, item.Type)
		}
		rotated = append(rotated, model.VaultItem{
			ID:         item.ID,
			IdentityID: identityID,
			Type:       item.Type,
			Name:       item.Name,
			Envelope:   item.Envelope,
			UpdatedAt:  now,
		})
	}

	if err := a.rotationStore.RotateSalt(ctx, identityID, ch.Nonce, rotated); err != nil {
		return fmt.Errorf("failed to rotate salt: %w", err)
	}

	a.logger.Info("Auth service: rotation completed",
		"identity_id", identityID,
		"items", len(rotated))

	return nil
}

// TokenService exposes the embedded token service for middleware wiring.
func (a *Auth) TokenService() *TokenService {
	return a.tokenService
}

func (a *Auth) enrollCredential(ctx context.Context, identityID uuid.UUID, proof webauthn.RegistrationProof, publicKey []byte) error {
	existing, err := a.credentialStore.GetByCredentialID(ctx, proof.CredentialID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to get credential: %w", err)
	}

	if err == nil {
		if existing.IdentityID == identityID && crypto.ConstantTimeEqual(existing.PublicKey, publicKey) {
			// Idempotent re-enrollment of the same credential.
			return nil
		}
		a.logger.Warn("Auth service: credential id conflict",
			"identity_id", identityID,
			"credential_id", proof.CredentialID)
		return model.ErrIdentityConflict
	}

	_, err = a.credentialStore.Create(ctx, model.CredentialRecord{
		ID:           uuid.New(),
		IdentityID:   identityID,
		CredentialID: proof.CredentialID,
		PublicKey:    publicKey,
		SignCounter:  proof.SignCounter,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func newChallengeNonce() ([]byte, error) {
	nonce := make([]byte, challengeNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate challenge nonce: %w", err)
	}
	return nonce, nil
}
