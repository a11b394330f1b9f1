package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CredentialStore defines persistence operations for possession credentials.
type CredentialStore interface {
	GetByCredentialID(ctx context.Context, credentialID string) (CredentialRecord, error)
	GetByIdentity(ctx context.Context, identityID uuid.UUID) ([]CredentialRecord, error)
	Create(ctx context.Context, record CredentialRecord) (CredentialRecord, error)
	UpdateSignCounter(ctx context.Context, credentialID string, counter uint32) error
}

// CredentialRecord is one public-key possession credential bound to an
// identity. Multiple records per identity support multi-device use.
// SignCounter must strictly increase across assertions; a non-increase
// signals a cloned credential.
type CredentialRecord struct {
	ID           uuid.UUID
	IdentityID   uuid.UUID
	CredentialID string
	PublicKey    []byte
	SignCounter  uint32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
