package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zkvault/zkvault-server/internal/model"
)

var _ model.CredentialStore = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *Connection
}

func NewCredentialRepository(db *Connection) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetByCredentialID(ctx context.Context, credentialID string) (model.CredentialRecord, error) {
	const query = `
		SELECT id, identity_id, credential_id, public_key, sign_counter, created_at, updated_at
		FROM credentials
		WHERE credential_id = $1`

	var record model.CredentialRecord
	err := r.db.QueryRow(ctx, query, credentialID).Scan(
		&record.ID, &record.IdentityID, &record.CredentialID,
		&record.PublicKey, &record.SignCounter, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CredentialRecord{}, model.ErrNotFound
		}
		return model.CredentialRecord{}, fmt.Errorf("failed to get credential: %w", err)
	}

	return record, nil
}

func (r *CredentialRepository) GetByIdentity(ctx context.Context, identityID uuid.UUID) ([]model.CredentialRecord, error) {
	const query = `
		SELECT id, identity_id, credential_id, public_key, sign_counter, created_at, updated_at
		FROM credentials
		WHERE identity_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.CredentialRecord
	for rows.Next() {
		var record model.CredentialRecord
		err := rows.Scan(
			&record.ID, &record.IdentityID, &record.CredentialID,
			&record.PublicKey, &record.SignCounter, &record.CreatedAt, &record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *CredentialRepository) Create(ctx context.Context, record model.CredentialRecord) (model.CredentialRecord, error) {
	const query = `
		INSERT INTO credentials (id, identity_id, credential_id, public_key, sign_counter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, identity_id, credential_id, public_key, sign_counter, created_at, updated_at`

	var saved model.CredentialRecord
	err := r.db.QueryRow(ctx, query,
		record.ID, record.IdentityID, record.CredentialID,
		record.PublicKey, record.SignCounter, record.CreatedAt, record.UpdatedAt,
	).Scan(
		&saved.ID, &saved.IdentityID, &saved.CredentialID,
		&saved.PublicKey, &saved.SignCounter, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("failed to create credential: %w", err)
	}

	return saved, nil
}

// UpdateSignCounter persists a counter advance. The guard in the WHERE
// clause keeps the counter monotonic even under concurrent ceremonies:
// a stale write affects no rows and surfaces as clone detection.
func (r *CredentialRepository) UpdateSignCounter(ctx context.Context, credentialID string, counter uint32) error {
	const query = `
		UPDATE credentials SET sign_counter = $2, updated_at = NOW()
		WHERE credential_id = $1 AND sign_counter < $2`

	cmd, err := r.db.Exec(ctx, query, credentialID, counter)
	if err != nil {
		return fmt.Errorf("failed to update sign counter: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrCloneDetected
	}
	return nil
}
