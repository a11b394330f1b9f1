package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zkvault/zkvault-server/internal/model"
)

var _ model.ChallengeStore = (*ChallengeRepository)(nil)

// ChallengeRepository is the durable ChallengeStore. Single use is
// guaranteed by DELETE ... RETURNING: whichever verification attempt
// wins the delete gets the challenge, everyone else sees no rows.
type ChallengeRepository struct {
	db *Connection
}

func NewChallengeRepository(db *Connection) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func (r *ChallengeRepository) Put(ctx context.Context, challenge model.Challenge) error {
	const query = `
		INSERT INTO challenges (identity_id, ceremony, nonce, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_id, ceremony) DO UPDATE
		SET nonce = EXCLUDED.nonce, expires_at = EXCLUDED.expires_at`

	_, err := r.db.Exec(ctx, query,
		challenge.IdentityID, string(challenge.Ceremony), challenge.Nonce, challenge.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepository) Take(ctx context.Context, identityID uuid.UUID, ceremony model.Ceremony) (model.Challenge, error) {
	const query = `
		DELETE FROM challenges
		WHERE identity_id = $1 AND ceremony = $2
		RETURNING nonce, expires_at`

	challenge := model.Challenge{
		IdentityID: identityID,
		Ceremony:   ceremony,
	}
	err := r.db.QueryRow(ctx, query, identityID, string(ceremony)).Scan(
		&challenge.Nonce, &challenge.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Challenge{}, model.ErrNoPendingChallenge
		}
		return model.Challenge{}, fmt.Errorf("failed to take challenge: %w", err)
	}

	if challenge.Expired(time.Now()) {
		return model.Challenge{}, model.ErrChallengeExpired
	}
	return challenge, nil
}

// DeleteExpired sweeps challenges past their expiry. Expired challenges
// already cannot verify; this just keeps the table small.
func (r *ChallengeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM challenges WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	return cmd.RowsAffected(), nil
}
