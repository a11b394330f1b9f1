package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zkvault/zkvault-server/internal/model"
)

var _ model.ItemStore = (*ItemRepository)(nil)

// Items are keyed (identity_id, id), so an id only ever conflicts with
// the caller's own row and another identity's items stay invisible to
// the save path.
const upsertItemQuery = `
	INSERT INTO vault_items (id, identity_id, type, name, envelope, blob_key, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	ON CONFLICT (identity_id, id) DO UPDATE
	SET type = EXCLUDED.type, name = EXCLUDED.name, envelope = EXCLUDED.envelope,
	    blob_key = EXCLUDED.blob_key, updated_at = NOW()`

type ItemRepository struct {
	db *Connection
}

func NewItemRepository(db *Connection) *ItemRepository {
	return &ItemRepository{
		db: db,
	}
}

func (r *ItemRepository) Upsert(ctx context.Context, item model.VaultItem) (model.VaultItem, error) {
	query := upsertItemQuery + `
	RETURNING id, identity_id, type, name, envelope, blob_key, created_at, updated_at`

	var saved model.VaultItem
	err := r.db.QueryRow(ctx, query,
		item.ID, item.IdentityID, string(item.Type), item.Name, item.Envelope, item.BlobKey,
	).Scan(
		&saved.ID, &saved.IdentityID, &saved.Type, &saved.Name,
		&saved.Envelope, &saved.BlobKey, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.VaultItem{}, fmt.Errorf("failed to upsert item: %w", err)
	}

	return saved, nil
}

func (r *ItemRepository) GetByIDs(ctx context.Context, identityID uuid.UUID, ids []uuid.UUID) ([]model.VaultItem, error) {
	query := `
		SELECT id, identity_id, type, name, envelope, blob_key, created_at, updated_at
		FROM vault_items
		WHERE identity_id = $1 AND id = ANY($2)
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, identityID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepository) GetManifest(ctx context.Context, identityID uuid.UUID) ([]model.ManifestEntry, error) {
	query := `
		SELECT id, type, name, updated_at
		FROM vault_items
		WHERE identity_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ManifestEntry
	for rows.Next() {
		var entry model.ManifestEntry
		if err := rows.Scan(&entry.ID, &entry.Type, &entry.Name, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ItemRepository) GetAll(ctx context.Context, identityID uuid.UUID) ([]model.VaultItem, error) {
	query := `
		SELECT id, identity_id, type, name, envelope, blob_key, created_at, updated_at
		FROM vault_items
		WHERE identity_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepository) Delete(ctx context.Context, identityID uuid.UUID, id uuid.UUID) error {
	const query = `DELETE FROM vault_items WHERE identity_id = $1 AND id = $2`

	cmd, err := r.db.Exec(ctx, query, identityID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanItems(rows pgx.Rows) ([]model.VaultItem, error) {
	var items []model.VaultItem
	for rows.Next() {
		var item model.VaultItem
		err := rows.Scan(
			&item.ID, &item.IdentityID, &item.Type, &item.Name,
			&item.Envelope, &item.BlobKey, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
