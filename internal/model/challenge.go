package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChallengeTTL bounds the lifetime of a pending ceremony.
const ChallengeTTL = 5 * time.Minute

// Ceremony enumerates the challenge-response ceremony types.
type Ceremony string

const (
	// CeremonyRegistration is the credential enrollment ceremony.
	CeremonyRegistration Ceremony = "registration"
	// CeremonyLogin is the authentication ceremony.
	CeremonyLogin Ceremony = "login"
	// CeremonyRotation is the master password rotation ceremony. Its
	// nonce carries the candidate key derivation salt.
	CeremonyRotation Ceremony = "rotation"
)

// ChallengeStore holds pending ceremonies keyed by identity and ceremony.
// Take must atomically return and delete the challenge so that a
// challenge can never verify twice.
type ChallengeStore interface {
	Put(ctx context.Context, challenge Challenge) error
	Take(ctx context.Context, identityID uuid.UUID, ceremony Ceremony) (Challenge, error)
}

// Challenge is an ephemeral single-use nonce bound to one identity and
// one ceremony.
type Challenge struct {
	IdentityID uuid.UUID
	Ceremony   Ceremony
	Nonce      []byte
	ExpiresAt  time.Time
}

// Expired reports whether the challenge is past its expiry at now.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
