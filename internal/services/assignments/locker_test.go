package assignments_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	redrepo "github.com/ivankudzin/giftexchange/internal/repo/redis"
	"github.com/ivankudzin/giftexchange/internal/services/assignments"
)

func TestRedisLockSerializesRunsAcrossServices(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redrepo.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	locks := redrepo.NewLockRepo(client)

	f := newFixture(t, "Ann", "Ben")
	f.edge("Ann", "Ben", 1)
	f.edge("Ben", "Ann", 1)
	svc := assignments.NewService(assignments.Dependencies{
		Tx:           f.store.Tx,
		Collections:  f.store,
		Assignments:  f.store,
		Signups:      f.store,
		Participants: f.store,
		Locker:       locks,
	}, assignments.Config{RandomSeed: 1, LockTTL: time.Minute})

	ctx := context.Background()
	key := "collection:" + strconv.FormatInt(f.collectionID, 10)
	token, ok, err := locks.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Generate(ctx, f.collectionID)
	require.ErrorIs(t, err, assignments.ErrCollectionBusy)
	require.Zero(t, f.store.Writes)

	require.NoError(t, locks.Release(ctx, key, token))

	report, err := svc.Generate(ctx, f.collectionID)
	require.NoError(t, err)
	require.Equal(t, 2, report.Matched)

	holder, err := locks.Holder(ctx, key)
	require.NoError(t, err)
	require.Empty(t, holder, "generate must release the lock")
}

func TestRedisLockExpiresForCrashedHolder(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redrepo.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	locks := redrepo.NewLockRepo(client)

	f := newFixture(t, "Ann")
	svc := assignments.NewService(assignments.Dependencies{
		Tx:           f.store.Tx,
		Collections:  f.store,
		Assignments:  f.store,
		Signups:      f.store,
		Participants: f.store,
		Locker:       locks,
	}, assignments.Config{})

	ctx := context.Background()
	_, ok, err := locks.Acquire(ctx, "collection:"+strconv.FormatInt(f.collectionID, 10), 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Reconcile(ctx, f.collectionID)
	require.ErrorIs(t, err, assignments.ErrCollectionBusy)

	mr.FastForward(31 * time.Second)

	report, err := svc.Reconcile(ctx, f.collectionID)
	require.NoError(t, err)
	require.Equal(t, 2, report.Created)
}

// expiringLocker grants every lock and answers refreshes with keep.
type expiringLocker struct {
	keep      bool
	refreshes atomic.Int32
}

func (l *expiringLocker) Acquire(context.Context, string, time.Duration) (string, bool, error) {
	return "token", true, nil
}

func (l *expiringLocker) Release(context.Context, string, string) error {
	return nil
}

func (l *expiringLocker) Refresh(context.Context, string, string, time.Duration) (bool, error) {
	l.refreshes.Add(1)
	return l.keep, nil
}

func TestLongRunKeepsRefreshingLock(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	f.edge("Ann", "Ben", 1)
	f.edge("Ben", "Ann", 1)
	locks := &expiringLocker{keep: true}

	slowTx := func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		deadline := time.After(2 * time.Second)
		for locks.refreshes.Load() < 2 {
			select {
			case <-deadline:
				return errors.New("lock was never refreshed")
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Millisecond):
			}
		}
		return f.store.Tx(ctx, fn)
	}
	svc := assignments.NewService(assignments.Dependencies{
		Tx:           slowTx,
		Collections:  f.store,
		Assignments:  f.store,
		Signups:      f.store,
		Participants: f.store,
		Locker:       locks,
	}, assignments.Config{RandomSeed: 1, LockTTL: 30 * time.Millisecond})

	report, err := svc.Generate(context.Background(), f.collectionID)
	require.NoError(t, err)
	require.Equal(t, 2, report.Matched)
	require.GreaterOrEqual(t, locks.refreshes.Load(), int32(2))
}

func TestLostLockCancelsRun(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	f.edge("Ann", "Ben", 1)
	locks := &expiringLocker{keep: false}

	blockingTx := func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return f.store.Tx(ctx, fn)
		}
	}
	svc := assignments.NewService(assignments.Dependencies{
		Tx:           blockingTx,
		Collections:  f.store,
		Assignments:  f.store,
		Signups:      f.store,
		Participants: f.store,
		Locker:       locks,
	}, assignments.Config{RandomSeed: 1, LockTTL: 30 * time.Millisecond})

	_, err := svc.Generate(context.Background(), f.collectionID)
	require.ErrorIs(t, err, assignments.ErrLockLost)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, f.store.Writes)
}
