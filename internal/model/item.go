package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ItemStore defines persistence operations for vault items.
type ItemStore interface {
	Upsert(ctx context.Context, item VaultItem) (VaultItem, error)
	GetByIDs(ctx context.Context, identityID uuid.UUID, ids []uuid.UUID) ([]VaultItem, error)
	GetManifest(ctx context.Context, identityID uuid.UUID) ([]ManifestEntry, error)
	GetAll(ctx context.Context, identityID uuid.UUID) ([]VaultItem, error)
	Delete(ctx context.Context, identityID uuid.UUID, id uuid.UUID) error
}

// RotationStore applies a master password rotation: new salt plus the
// full re-encrypted item set, atomically.
type RotationStore interface {
	RotateSalt(ctx context.Context, identityID uuid.UUID, salt []byte, items []VaultItem) error
}

// VaultItem is one encrypted vault entry. The server only ever sees the
// envelope; Name and Type are stored in the clear for listing.
// Envelope is empty when the ciphertext is offloaded to object storage,
// in which case BlobKey locates it.
type VaultItem struct {
	ID         uuid.UUID
	IdentityID uuid.UUID
	Type       ItemType
	Name       string
	Envelope   string
	BlobKey    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ItemType enumerates vault item kinds.
type ItemType string

const (
	// ItemTypeLogin is a site login entry.
	ItemTypeLogin ItemType = "login"
	// ItemTypeNote is a secure note entry.
	ItemTypeNote ItemType = "note"
	// ItemTypeCard is a payment card entry.
	ItemTypeCard ItemType = "card"
	// ItemTypeAttachment is a binary attachment entry, offloaded to
	// object storage when large.
	ItemTypeAttachment ItemType = "attachment"
)

// ValidItemType reports whether t is a known item kind.
func ValidItemType(t ItemType) bool {
	switch t {
	case ItemTypeLogin, ItemTypeNote, ItemTypeCard, ItemTypeAttachment:
		return true
	}
	return false
}

// ManifestEntry is one row of the manifest projection: item identity and
// metadata without ciphertext. Manifests are always recomputed from item
// rows, ordered by id for deterministic diffing.
type ManifestEntry struct {
	ID        uuid.UUID `json:"id"`
	Type      ItemType  `json:"type"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemWrite carries one client-encrypted item for SaveItems.
type ItemWrite struct {
	ID       uuid.UUID
	Type     ItemType
	Name     string
	Envelope string
}
