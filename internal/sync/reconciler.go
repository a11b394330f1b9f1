package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault-server/internal/crypto"
	"github.com/zkvault/zkvault-server/internal/model"
)

// ItemSource is the server surface a reconciler syncs against.
type ItemSource interface {
	GetManifest(ctx context.Context) ([]model.ManifestEntry, error)
	GetItems(ctx context.Context, ids []uuid.UUID) ([]model.VaultItem, error)
}

// CachedItem is one decrypted entry in the local cache. Data holds the
// typed payload (LoginData, NoteData, CardData or AttachmentData)
// decoded from the plaintext.
type CachedItem struct {
	Type      model.ItemType
	Name      string
	Plaintext []byte
	Data      any
	UpdatedAt time.Time
}

// Reconciler maintains a local decrypted cache against the server
// manifest. It owns the vault key handle; plaintext never leaves the
// cache it fills.
type Reconciler struct {
	source ItemSource
	key    crypto.KeyHandle
	cache  map[uuid.UUID]CachedItem
}

func NewReconciler(source ItemSource, key crypto.KeyHandle) *Reconciler {
	return &Reconciler{
		source: source,
		key:    key,
		cache:  make(map[uuid.UUID]CachedItem),
	}
}

// Sync fetches the manifest, pulls only changed items, decrypts and
// decodes them into their typed payloads and updates the cache, then
// drops entries the manifest no longer lists.
// Abandoning the context at any point leaves the server untouched and
// the cache merely behind, never corrupt.
func (r *Reconciler) Sync(ctx context.Context) error {
	manifest, err := r.source.GetManifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch manifest: %w", err)
	}

	delta := ComputeDelta(r.snapshot(), manifest)

	if len(delta.ToFetch) > 0 {
		items, err := r.source.GetItems(ctx, delta.ToFetch)
		if err != nil {
			return fmt.Errorf("failed to fetch items: %w", err)
		}

		for _, item := range items {
			plaintext, err := crypto.Decrypt(r.key, item.Envelope)
			if err != nil {
				return fmt.Errorf("failed to decrypt item %s: %w", item.ID, err)
			}
			data, err := model.DecodeItemData(item.Type, plaintext)
			if err != nil {
				return fmt.Errorf("failed to decode item %s: %w", item.ID, err)
			}
			r.cache[item.ID] = CachedItem{
				Type:      item.Type,
				Name:      item.Name,
				Plaintext: plaintext,
				Data:      data,
				UpdatedAt: item.UpdatedAt,
			}
		}
	}

	for _, id := range delta.ToForget {
		delete(r.cache, id)
	}

	return nil
}

// Get returns the cached decrypted item, if present.
func (r *Reconciler) Get(id uuid.UUID) (CachedItem, bool) {
	item, ok := r.cache[id]
	return item, ok
}

// Len returns the number of cached items.
func (r *Reconciler) Len() int {
	return len(r.cache)
}

func (r *Reconciler) snapshot() map[uuid.UUID]time.Time {
	local := make(map[uuid.UUID]time.Time, len(r.cache))
	for id, item := range r.cache {
		local[id] = item.UpdatedAt
	}
	return local
}
