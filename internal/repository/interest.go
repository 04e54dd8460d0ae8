package repository

import (
	"context"
	"fmt"
	"time"

	"matrimony-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const interestColumns = `
	id, sender_id, receiver_id, status, message, created_at, updated_at,
	photo_access_duration, photo_access_granted_at, photo_access_expires_at,
	photo_access_revoked, photo_access_revoked_at
`

// InterestRepository handles database operations for interests
type InterestRepository struct {
	db *pgxpool.Pool
}

// NewInterestRepository creates a new interest repository
func NewInterestRepository(db *pgxpool.Pool) *InterestRepository {
	return &InterestRepository{db: db}
}

func scanInterest(row pgx.Row) (*models.Interest, error) {
	var in models.Interest
	err := row.Scan(
		&in.ID, &in.SenderID, &in.ReceiverID, &in.Status, &in.Message,
		&in.CreatedAt, &in.UpdatedAt,
		&in.PhotoAccessDuration, &in.PhotoAccessGrantedAt, &in.PhotoAccessExpiresAt,
		&in.PhotoAccessRevoked, &in.PhotoAccessRevokedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("interest: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan interest: %w", err)
	}
	return &in, nil
}

// GetByID retrieves an interest by ID
func (r *InterestRepository) GetByID(ctx context.Context, id string) (*models.Interest, error) {
	query := `SELECT ` + interestColumns + ` FROM interests WHERE id = $1`
	return scanInterest(r.db.QueryRow(ctx, query, id))
}

// GetByPair retrieves the interest sent from senderID to receiverID.
// The (sender_id, receiver_id) pair is unique, so this is a single
// indexed lookup.
func (r *InterestRepository) GetByPair(ctx context.Context, senderID, receiverID string) (*models.Interest, error) {
	query := `SELECT ` + interestColumns + ` FROM interests WHERE sender_id = $1 AND receiver_id = $2`
	return scanInterest(r.db.QueryRow(ctx, query, senderID, receiverID))
}

// Create inserts a new interest. Returns false without error when a row for
// the same (sender, receiver) pair already exists — creation is idempotent
// and rides the unique pair constraint.
func (r *InterestRepository) Create(ctx context.Context, in *models.Interest) (bool, error) {
	query := `
		INSERT INTO interests (id, sender_id, receiver_id, status, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sender_id, receiver_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		in.ID, in.SenderID, in.ReceiverID, in.Status, in.Message, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create interest: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetStatus transitions an interest from one status to another. The update
// is conditional on the current status so a raced transition is detected
// rather than overwritten. Returns false when the row was not in `from`.
func (r *InterestRepository) SetStatus(ctx context.Context, id string, from, to models.InterestStatus, now time.Time) (bool, error) {
	query := `UPDATE interests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	tag, err := r.db.Exec(ctx, query, id, from, to, now)
	if err != nil {
		return false, fmt.Errorf("failed to update interest status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AcceptMutual flips two counterpart interests from pending to accepted in
// a single transaction. Both updates are conditional on status = 'pending';
// the transaction commits only when both rows flipped, so a decline or a
// concurrent flip that landed first makes this a no-op. Rows are taken in
// sorted ID order so two concurrent flips of the same pair cannot deadlock.
func (r *InterestRepository) AcceptMutual(ctx context.Context, firstID, secondID string, now time.Time) (bool, error) {
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE interests SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	for _, id := range []string{firstID, secondID} {
		tag, err := tx.Exec(ctx, query, id, models.InterestStatusAccepted, now, models.InterestStatusPending)
		if err != nil {
			return false, fmt.Errorf("failed to accept interest %s: %w", id, err)
		}
		if tag.RowsAffected() != 1 {
			// counterpart no longer pending, roll back via the deferred Rollback
			return false, nil
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit mutual accept: %w", err)
	}
	return true, nil
}

// SetGrant records a photo-access grant on an accepted interest,
// overwriting any prior grant and clearing the revoked flags.
// Returns false when the interest is not accepted.
func (r *InterestRepository) SetGrant(ctx context.Context, id string, duration models.PhotoAccessDuration, grantedAt time.Time, expiresAt *time.Time) (bool, error) {
	query := `
		UPDATE interests
		SET photo_access_duration = $2,
		    photo_access_granted_at = $3,
		    photo_access_expires_at = $4,
		    photo_access_revoked = FALSE,
		    photo_access_revoked_at = NULL,
		    updated_at = $3
		WHERE id = $1 AND status = $5
	`
	tag, err := r.db.Exec(ctx, query, id, duration, grantedAt, expiresAt, models.InterestStatusAccepted)
	if err != nil {
		return false, fmt.Errorf("failed to set photo access grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeGrant marks an active grant revoked. Returns false when no grant
// exists or it is already revoked.
func (r *InterestRepository) RevokeGrant(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE interests
		SET photo_access_revoked = TRUE,
		    photo_access_revoked_at = $2,
		    updated_at = $2
		WHERE id = $1 AND photo_access_granted_at IS NOT NULL AND NOT photo_access_revoked
	`
	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to revoke photo access: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeletePending deletes the pending interest from senderID to receiverID.
// Returns false when no such pending row exists.
func (r *InterestRepository) DeletePending(ctx context.Context, senderID, receiverID string) (bool, error) {
	query := `DELETE FROM interests WHERE sender_id = $1 AND receiver_id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, senderID, receiverID, models.InterestStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to delete interest: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByReceiver retrieves interests addressed to a user, newest first
func (r *InterestRepository) ListByReceiver(ctx context.Context, receiverID string, limit, offset int) ([]*models.Interest, error) {
	query := `
		SELECT ` + interestColumns + `
		FROM interests
		WHERE receiver_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, receiverID, limit, offset)
}

// ListBySender retrieves interests sent by a user, newest first
func (r *InterestRepository) ListBySender(ctx context.Context, senderID string, limit, offset int) ([]*models.Interest, error) {
	query := `
		SELECT ` + interestColumns + `
		FROM interests
		WHERE sender_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, senderID, limit, offset)
}

func (r *InterestRepository) list(ctx context.Context, query, userID string, limit, offset int) ([]*models.Interest, error) {
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	defer rows.Close()

	var interests []*models.Interest
	for rows.Next() {
		in, err := scanInterest(rows)
		if err != nil {
			return nil, err
		}
		interests = append(interests, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interests: %w", err)
	}
	return interests, nil
}
