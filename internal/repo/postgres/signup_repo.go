package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSignupNotFound = errors.New("signup not found")

type SignupRepo struct {
	pool *pgxpool.Pool
}

func NewSignupRepo(pool *pgxpool.Pool) *SignupRepo {
	return &SignupRepo{pool: pool}
}

func (r *SignupRepo) UpdateFlags(ctx context.Context, tx pgx.Tx, signupID int64, assignedAsOffer, assignedAsRequest bool) error {
	if signupID <= 0 {
		return fmt.Errorf("invalid signup id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE signups
SET assigned_as_offer = $2,
	assigned_as_request = $3,
	updated_at = NOW()
WHERE id = $1
`, signupID, assignedAsOffer, assignedAsRequest)
	if err != nil {
		return fmt.Errorf("update signup flags: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSignupNotFound
	}

	return nil
}
