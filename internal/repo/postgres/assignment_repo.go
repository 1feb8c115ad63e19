package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAssignmentNotFound = errors.New("assignment not found")

const pinchHitterConstraint = "assignments_pinch_hitter_id_fkey"

type AssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{pool: pool}
}

func (r *AssignmentRepo) Create(ctx context.Context, tx pgx.Tx, rec AssignmentRecord) (int64, error) {
	if rec.CollectionID <= 0 {
		return 0, fmt.Errorf("invalid assignment payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO assignments (
	collection_id,
	offer_signup_id,
	request_signup_id,
	pinch_hitter_id,
	pinch_request_signup_id,
	sent_at,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id
`, rec.CollectionID, rec.OfferSignupID, rec.RequestSignupID, rec.PinchHitterID, rec.PinchRequestSignupID, rec.SentAt).Scan(&id)
	if err != nil {
		if isPinchHitterViolation(err) {
			return 0, ErrParticipantNotFound
		}
		return 0, fmt.Errorf("create assignment: %w", err)
	}

	return id, nil
}

func (r *AssignmentRepo) Update(ctx context.Context, tx pgx.Tx, rec AssignmentRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("invalid assignment id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE assignments
SET offer_signup_id = $2,
	request_signup_id = $3,
	pinch_hitter_id = $4,
	pinch_request_signup_id = $5,
	sent_at = $6
WHERE id = $1
`, rec.ID, rec.OfferSignupID, rec.RequestSignupID, rec.PinchHitterID, rec.PinchRequestSignupID, rec.SentAt)
	if err != nil {
		if isPinchHitterViolation(err) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("update assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}

	return nil
}

// Delete removes the row only. Resetting the signup flags it referenced is
// the caller's job and must happen in the same transaction.
func (r *AssignmentRepo) Delete(ctx context.Context, tx pgx.Tx, assignmentID int64) error {
	if assignmentID <= 0 {
		return fmt.Errorf("invalid assignment id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, assignmentID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}

	return nil
}

func (r *AssignmentRepo) MarkSent(ctx context.Context, tx pgx.Tx, assignmentID int64, sentAt time.Time) error {
	if assignmentID <= 0 {
		return fmt.Errorf("invalid assignment id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE assignments
SET sent_at = $2
WHERE id = $1
`, assignmentID, sentAt.UTC())
	if err != nil {
		return fmt.Errorf("mark assignment sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}

	return nil
}

// isPinchHitterViolation reports a pinch hitter pseud deleted between the
// snapshot load and the write.
func isPinchHitterViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == pinchHitterConstraint
}
