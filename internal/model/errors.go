package model

import "errors"

var (
	// ErrNotFound is returned by stores when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a request fails validation before
	// reaching any store or ceremony.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSalt is returned when a key derivation salt cannot be
	// decoded to the expected byte length.
	ErrInvalidSalt = errors.New("invalid key derivation salt")

	// ErrAuthenticationFailed is returned on any envelope decryption
	// failure. Wrong key, corrupted data and tampering are deliberately
	// indistinguishable.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidEnvelope is returned when an envelope blob cannot be
	// decoded at all (bad transport encoding).
	ErrInvalidEnvelope = errors.New("invalid envelope encoding")

	// ErrIdentityNotFound is returned when a ceremony is started for an
	// email with no registered identity or credentials.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityConflict is returned when registering a credential id
	// that already exists with different public key material.
	ErrIdentityConflict = errors.New("identity credential conflict")

	// ErrNoPendingChallenge is returned when no unconsumed challenge
	// exists for the identity and ceremony.
	ErrNoPendingChallenge = errors.New("no pending challenge")

	// ErrChallengeExpired is returned when a challenge exists but is past
	// its expiry. The challenge is consumed either way.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrProofInvalid is returned when a possession proof does not verify
	// against the challenge and public key material.
	ErrProofInvalid = errors.New("possession proof invalid")

	// ErrCloneDetected is returned when a credential's sign counter does
	// not strictly increase. Fatal for the credential regardless of
	// cryptographic validity of the proof.
	ErrCloneDetected = errors.New("credential clone detected")

	// ErrUpstreamUnavailable is returned when the external breach corpus
	// cannot be queried. Treated as "unknown", never as "safe".
	ErrUpstreamUnavailable = errors.New("breach corpus unavailable")
)
