package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityStore defines persistence operations for identities.
type IdentityStore interface {
	GetByEmail(ctx context.Context, email string) (Identity, error)
	GetByID(ctx context.Context, id uuid.UUID) (Identity, error)
	Create(ctx context.Context, identity Identity) (Identity, error)
	UpdateSalt(ctx context.Context, id uuid.UUID, salt []byte) error
}

// Identity represents a registered account. KeyDerivationSalt is issued
// once at registration and changes only through an explicit master
// password rotation.
type Identity struct {
	ID                uuid.UUID
	Email             string
	KeyDerivationSalt []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
