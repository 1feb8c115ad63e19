package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrParticipantNotFound = errors.New("participant not found")

type ParticipantRepo struct {
	pool *pgxpool.Pool
}

func NewParticipantRepo(pool *pgxpool.Pool) *ParticipantRepo {
	return &ParticipantRepo{pool: pool}
}

// FindByByline looks a pseud up by name, narrowed to the owning login when
// one is given. Names compare case-insensitively.
func (r *ParticipantRepo) FindByByline(ctx context.Context, tx pgx.Tx, name, login string) (ParticipantRecord, error) {
	name = strings.TrimSpace(name)
	login = strings.TrimSpace(login)
	if name == "" {
		return ParticipantRecord{}, fmt.Errorf("participant name is required")
	}

	var db querier = tx
	if tx == nil {
		if r.pool == nil {
			return ParticipantRecord{}, fmt.Errorf("postgres pool is nil")
		}
		db = r.pool
	}

	var item ParticipantRecord
	err := db.QueryRow(ctx, `
SELECT
	p.id,
	p.user_id,
	p.name,
	COALESCE(u.login, ''),
	COALESCE(u.telegram_chat_id, 0)
FROM pseuds p
JOIN users u ON u.id = p.user_id
WHERE LOWER(p.name) = LOWER($1)
	AND ($2 = '' OR LOWER(u.login) = LOWER($2))
ORDER BY p.id
LIMIT 1
`, name, login).Scan(&item.ID, &item.UserID, &item.Name, &item.Login, &item.TelegramChatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ParticipantRecord{}, ErrParticipantNotFound
		}
		return ParticipantRecord{}, fmt.Errorf("find participant by byline: %w", err)
	}

	return item, nil
}
