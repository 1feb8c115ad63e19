package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCollectionNotFound = errors.New("collection not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type CollectionRepo struct {
	pool *pgxpool.Pool
}

func NewCollectionRepo(pool *pgxpool.Pool) *CollectionRepo {
	return &CollectionRepo{pool: pool}
}

func (r *CollectionRepo) db(tx pgx.Tx) (querier, error) {
	if tx != nil {
		return tx, nil
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	return r.pool, nil
}

// LoadSnapshot reads the collection with its signups, their participants,
// scored potential matches and current assignments. Rows come back ordered by
// id so repeated loads see the same sequence.
func (r *CollectionRepo) LoadSnapshot(ctx context.Context, tx pgx.Tx, collectionID int64) (CollectionSnapshot, error) {
	if collectionID <= 0 {
		return CollectionSnapshot{}, fmt.Errorf("invalid collection id")
	}
	db, err := r.db(tx)
	if err != nil {
		return CollectionSnapshot{}, err
	}

	var snapshot CollectionSnapshot
	err = db.QueryRow(ctx, `
SELECT id, name, created_at
FROM collections
WHERE id = $1
`, collectionID).Scan(&snapshot.Collection.ID, &snapshot.Collection.Name, &snapshot.Collection.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CollectionSnapshot{}, ErrCollectionNotFound
		}
		return CollectionSnapshot{}, fmt.Errorf("load collection: %w", err)
	}

	if snapshot.Participants, err = loadParticipants(ctx, db, collectionID); err != nil {
		return CollectionSnapshot{}, err
	}
	if snapshot.Signups, err = loadSignups(ctx, db, collectionID); err != nil {
		return CollectionSnapshot{}, err
	}
	if snapshot.PotentialMatches, err = loadPotentialMatches(ctx, db, collectionID); err != nil {
		return CollectionSnapshot{}, err
	}
	if snapshot.Assignments, err = loadAssignments(ctx, db, collectionID); err != nil {
		return CollectionSnapshot{}, err
	}

	return snapshot, nil
}

func loadParticipants(ctx context.Context, db querier, collectionID int64) ([]ParticipantRecord, error) {
	rows, err := db.Query(ctx, `
SELECT
	p.id,
	p.user_id,
	p.name,
	COALESCE(u.login, ''),
	COALESCE(u.telegram_chat_id, 0)
FROM pseuds p
JOIN users u ON u.id = p.user_id
WHERE p.id IN (
	SELECT s.pseud_id FROM signups s WHERE s.collection_id = $1
	UNION
	SELECT a.pinch_hitter_id FROM assignments a
	WHERE a.collection_id = $1 AND a.pinch_hitter_id IS NOT NULL
)
ORDER BY p.id
`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	items := make([]ParticipantRecord, 0)
	for rows.Next() {
		var item ParticipantRecord
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Login, &item.TelegramChatID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate participants: %w", rows.Err())
	}
	return items, nil
}

func loadSignups(ctx context.Context, db querier, collectionID int64) ([]SignupRecord, error) {
	rows, err := db.Query(ctx, `
SELECT id, collection_id, pseud_id, assigned_as_offer, assigned_as_request
FROM signups
WHERE collection_id = $1
ORDER BY id
`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	defer rows.Close()

	items := make([]SignupRecord, 0)
	for rows.Next() {
		var item SignupRecord
		if err := rows.Scan(
			&item.ID,
			&item.CollectionID,
			&item.ParticipantID,
			&item.AssignedAsOffer,
			&item.AssignedAsRequest,
		); err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate signups: %w", rows.Err())
	}
	return items, nil
}

func loadPotentialMatches(ctx context.Context, db querier, collectionID int64) ([]PotentialMatchRecord, error) {
	rows, err := db.Query(ctx, `
SELECT id, collection_id, offer_signup_id, request_signup_id, score
FROM potential_matches
WHERE collection_id = $1
ORDER BY score DESC, id
`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list potential matches: %w", err)
	}
	defer rows.Close()

	items := make([]PotentialMatchRecord, 0)
	for rows.Next() {
		var item PotentialMatchRecord
		if err := rows.Scan(
			&item.ID,
			&item.CollectionID,
			&item.OfferSignupID,
			&item.RequestSignupID,
			&item.Score,
		); err != nil {
			return nil, fmt.Errorf("scan potential match: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate potential matches: %w", rows.Err())
	}
	return items, nil
}

func loadAssignments(ctx context.Context, db querier, collectionID int64) ([]AssignmentRecord, error) {
	rows, err := db.Query(ctx, `
SELECT
	id,
	collection_id,
	offer_signup_id,
	request_signup_id,
	pinch_hitter_id,
	pinch_request_signup_id,
	sent_at,
	created_at
FROM assignments
WHERE collection_id = $1
ORDER BY id
`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	items := make([]AssignmentRecord, 0)
	for rows.Next() {
		var item AssignmentRecord
		if err := rows.Scan(
			&item.ID,
			&item.CollectionID,
			&item.OfferSignupID,
			&item.RequestSignupID,
			&item.PinchHitterID,
			&item.PinchRequestSignupID,
			&item.SentAt,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate assignments: %w", rows.Err())
	}
	return items, nil
}
