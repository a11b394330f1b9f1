package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault-server/internal/logger"
	"github.com/zkvault/zkvault-server/internal/model"
)

// Envelopes above this size are offloaded to object storage; the item
// row then carries only the blob key.
const offloadThreshold = 64 * 1024

// Vault resolves manifest and delta fetch/push operations against
// client-encrypted item envelopes. No decryption ever happens here.
type Vault struct {
	itemStore model.ItemStore
	storage   model.Storage
	logger    *logger.Logger
}

func NewVault(itemStore model.ItemStore, storage model.Storage, logger *logger.Logger) *Vault {
	return &Vault{
		itemStore: itemStore,
		storage:   storage,
		logger:    logger,
	}
}

// GetManifest returns the identity's item metadata projection, ordered
// by id for deterministic diffing.
func (s *Vault) GetManifest(ctx context.Context, identityID uuid.UUID) ([]model.ManifestEntry, error) {
	entries, err := s.itemStore.GetManifest(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	return entries, nil
}

// GetItems bulk-fetches envelopes for the requested ids, scoped to the
// identity. Ids the identity does not own are silently omitted; the
// response never reveals whether such an item exists for someone else.
func (s *Vault) GetItems(ctx context.Context, identityID uuid.UUID, ids []uuid.UUID) ([]model.VaultItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	items, err := s.itemStore.GetByIDs(ctx, identityID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	for i := range items {
		if items[i].BlobKey == "" {
			continue
		}
		envelope, err := s.loadBlob(ctx, items[i].BlobKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load offloaded envelope: %w", err)
		}
		items[i].Envelope = envelope
	}

	return items, nil
}

// SaveItems upserts client-encrypted items one at a time. Each upsert is
// independently idempotent; a caller abandoning the request mid-way
// leaves the already-applied items in place and nothing half-written.
func (s *Vault) SaveItems(ctx context.Context, identityID uuid.UUID, items []model.ItemWrite) ([]model.VaultItem, error) {
	saved := make([]model.VaultItem, 0, len(items))

	for _, item := range items {
		if err := validateItemWrite(item); err != nil {
			return saved, err
		}

		result, err := s.saveItem(ctx, identityID, item)
		if err != nil {
			return saved, err
		}
		saved = append(saved, result)
	}

	return saved, nil
}

// DeleteItems hard-deletes the identity's items. Ids not owned by the
// identity are ignored; removal from future manifests is immediate.
func (s *Vault) DeleteItems(ctx context.Context, identityID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	items, err := s.itemStore.GetByIDs(ctx, identityID, ids)
	if err != nil {
		return fmt.Errorf("failed to get items for delete: %w", err)
	}

	for _, item := range items {
		if err := s.itemStore.Delete(ctx, identityID, item.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to delete item: %w", err)
		}
		if item.BlobKey != "" {
			if err := s.storage.Delete(ctx, item.BlobKey); err != nil {
				s.logger.Error("Vault service: failed to delete offloaded envelope",
					"blob_key", item.BlobKey,
					"error", err.Error())
			}
		}
	}

	return nil
}

func (s *Vault) saveItem(ctx context.Context, identityID uuid.UUID, item model.ItemWrite) (model.VaultItem, error) {
	row := model.VaultItem{
		ID:         item.ID,
		IdentityID: identityID,
		Type:       item.Type,
		Name:       item.Name,
		Envelope:   item.Envelope,
	}

	hadBlob := false
	if existing, err := s.itemStore.GetByIDs(ctx, identityID, []uuid.UUID{item.ID}); err == nil && len(existing) == 1 {
		hadBlob = existing[0].BlobKey != ""
	}

	if len(item.Envelope) > offloadThreshold {
		row.BlobKey = blobKey(identityID, item.ID)
		if err := s.storage.Upload(ctx, row.BlobKey, bytes.NewReader([]byte(item.Envelope))); err != nil {
			return model.VaultItem{}, fmt.Errorf("failed to upload envelope: %w", err)
		}
		row.Envelope = ""
	}

	saved, err := s.itemStore.Upsert(ctx, row)
	if err != nil {
		if row.BlobKey != "" {
			if delErr := s.storage.Delete(ctx, row.BlobKey); delErr != nil {
				s.logger.Error("Vault service: failed to clean up envelope after upsert failure",
					"blob_key", row.BlobKey,
					"error", delErr.Error())
			}
		}
		return model.VaultItem{}, fmt.Errorf("failed to upsert item: %w", err)
	}

	// The item shrank back inline; drop the stale blob.
	if hadBlob && row.BlobKey == "" {
		if err := s.storage.Delete(ctx, blobKey(identityID, item.ID)); err != nil {
			s.logger.Error("Vault service: failed to delete stale envelope blob",
				"item_id", item.ID,
				"error", err.Error())
		}
	}

	return saved, nil
}

func (s *Vault) loadBlob(ctx context.Context, key string) (string, error) {
	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func validateItemWrite(item model.ItemWrite) error {
	if item.ID == uuid.Nil {
		return fmt.Errorf("%w: item id is required", model.ErrInvalidInput)
	}
	if item.Name == "" {
		return fmt.Errorf("%w: item name is required", model.ErrInvalidInput)
	}
	if len(item.Name) > 255 {
		return fmt.Errorf("%w: item name too long (max 255 characters)", model.ErrInvalidInput)
	}
	if !model.ValidItemType(item.Type) {
		return fmt.Errorf("%w: invalid item type %q", model.ErrInvalidInput, item.Type)
	}
	if item.Envelope == "" {
		return fmt.Errorf("%w: item envelope is required", model.ErrInvalidInput)
	}
	return nil
}

func blobKey(identityID, itemID uuid.UUID) string {
	return fmt.Sprintf("identity-%s/item-%s", identityID.String(), itemID.String())
}
