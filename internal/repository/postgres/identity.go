package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zkvault/zkvault-server/internal/model"
)

var _ model.IdentityStore = (*IdentityRepository)(nil)
var _ model.RotationStore = (*IdentityRepository)(nil)

type IdentityRepository struct {
	db *Connection
}

func NewIdentityRepository(db *Connection) *IdentityRepository {
	return &IdentityRepository{
		db: db,
	}
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (model.Identity, error) {
	var identity model.Identity
	query := `SELECT id, email, key_derivation_salt, created_at, updated_at
			  FROM identities WHERE email = $1`

	err := r.db.QueryRow(ctx, query, email).Scan(
		&identity.ID, &identity.Email, &identity.KeyDerivationSalt,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Identity{}, model.ErrNotFound
		}
		return model.Identity{}, fmt.Errorf("failed to get identity by email: %w", err)
	}

	return identity, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Identity, error) {
	var identity model.Identity
	query := `SELECT id, email, key_derivation_salt, created_at, updated_at
			  FROM identities WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&identity.ID, &identity.Email, &identity.KeyDerivationSalt,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Identity{}, model.ErrNotFound
		}
		return model.Identity{}, fmt.Errorf("failed to get identity by id: %w", err)
	}

	return identity, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity model.Identity) (model.Identity, error) {
	query := `INSERT INTO identities (id, email, key_derivation_salt, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, email, key_derivation_salt, created_at, updated_at`

	// Identities are created before their salt exists; a nil slice would
	// encode as NULL and violate the column constraint.
	if identity.KeyDerivationSalt == nil {
		identity.KeyDerivationSalt = []byte{}
	}

	var saved model.Identity
	err := r.db.QueryRow(ctx, query,
		identity.ID, identity.Email, identity.KeyDerivationSalt,
		identity.CreatedAt, identity.UpdatedAt,
	).Scan(
		&saved.ID, &saved.Email, &saved.KeyDerivationSalt,
		&saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to create identity: %w", err)
	}

	return saved, nil
}

func (r *IdentityRepository) UpdateSalt(ctx context.Context, id uuid.UUID, salt []byte) error {
	const query = `UPDATE identities SET key_derivation_salt = $2, updated_at = NOW() WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id, salt)
	if err != nil {
		return fmt.Errorf("failed to update salt: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// RotateSalt applies a master password rotation in one transaction: the
// new salt and every re-encrypted envelope commit together or not at all.
func (r *IdentityRepository) RotateSalt(ctx context.Context, identityID uuid.UUID, salt []byte, items []model.VaultItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rotation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx,
		`UPDATE identities SET key_derivation_salt = $2, updated_at = NOW() WHERE id = $1`,
		identityID, salt)
	if err != nil {
		return fmt.Errorf("failed to update salt: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	for _, item := range items {
		_, err := tx.Exec(ctx, upsertItemQuery,
			item.ID, item.IdentityID, string(item.Type), item.Name, item.Envelope, item.BlobKey,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert rotated item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}
