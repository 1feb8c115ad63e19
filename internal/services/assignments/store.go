package assignments

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
	pgrepo "github.com/ivankudzin/giftexchange/internal/repo/postgres"
)

type CollectionStore interface {
	LoadSnapshot(ctx context.Context, tx pgx.Tx, collectionID int64) (pgrepo.CollectionSnapshot, error)
}

type AssignmentStore interface {
	Create(ctx context.Context, tx pgx.Tx, rec pgrepo.AssignmentRecord) (int64, error)
	Update(ctx context.Context, tx pgx.Tx, rec pgrepo.AssignmentRecord) error
	Delete(ctx context.Context, tx pgx.Tx, assignmentID int64) error
	MarkSent(ctx context.Context, tx pgx.Tx, assignmentID int64, sentAt time.Time) error
}

type SignupStore interface {
	UpdateFlags(ctx context.Context, tx pgx.Tx, signupID int64, assignedAsOffer, assignedAsRequest bool) error
}

type ParticipantStore interface {
	FindByByline(ctx context.Context, tx pgx.Tx, name, login string) (pgrepo.ParticipantRecord, error)
}

// Locker serializes runs per collection across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// Notifier delivers one assignment to its giver. Delivery is fire and forget
// from the engine's side.
type Notifier interface {
	Notify(ctx context.Context, collection model.Collection, giver *model.Participant, assignment *model.Assignment) error
}

type Recorder interface {
	Record(ctx context.Context, rec RunRecord) error
}

// StatusStore keeps the latest encoded RunRecord per collection and kind.
type StatusStore interface {
	SaveRun(ctx context.Context, collectionID int64, kind string, payload []byte) error
	LatestRuns(ctx context.Context, collectionID int64) (map[string][]byte, error)
}

// DirtyMarker queues a collection for a later reconcile pass.
type DirtyMarker interface {
	MarkDirty(ctx context.Context, collectionID int64) error
}

// Shuffler is satisfied by *rand.Rand.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type Dependencies struct {
	Pool         *pgxpool.Pool
	Tx           pgrepo.TxFunc
	Collections  CollectionStore
	Assignments  AssignmentStore
	Signups      SignupStore
	Participants ParticipantStore
	Locker       Locker
	Notifier     Notifier
	Recorders    []Recorder
	Status       StatusStore
	Dirty        DirtyMarker
	Logger       *zap.Logger
}

type Config struct {
	LockTTL time.Duration
	// RandomSeed fixes bucket shuffling when non-zero.
	RandomSeed uint64
}

func newShufflerFactory(seed uint64) func() Shuffler {
	if seed == 0 {
		return func() Shuffler {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	return func() Shuffler {
		return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}
