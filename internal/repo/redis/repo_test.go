package redis

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestLockRepoExclusiveUntilReleased(t *testing.T) {
	_, client := newMiniRedisClient(t)
	repo := NewLockRepo(client)
	ctx := context.Background()

	token, ok, err := repo.Acquire(ctx, "collection:7", time.Minute)
	if err != nil || !ok || token == "" {
		t.Fatalf("first acquire: token=%q ok=%v err=%v", token, ok, err)
	}

	_, ok, err = repo.Acquire(ctx, "collection:7", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatalf("expected second acquire to fail while lock is held")
	}

	if err := repo.Release(ctx, "collection:7", "someone-else"); err != nil {
		t.Fatalf("release with foreign token: %v", err)
	}
	holder, err := repo.Holder(ctx, "collection:7")
	if err != nil {
		t.Fatalf("holder: %v", err)
	}
	if holder != token {
		t.Fatalf("foreign token must not release lock, holder=%q", holder)
	}

	if err := repo.Release(ctx, "collection:7", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := repo.Acquire(ctx, "collection:7", time.Minute); !ok {
		t.Fatalf("expected acquire after release to succeed")
	}
}

func TestLockRepoExpires(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	repo := NewLockRepo(client)
	ctx := context.Background()

	if _, ok, err := repo.Acquire(ctx, "collection:1", 10*time.Second); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	mr.FastForward(11 * time.Second)

	if _, ok, err := repo.Acquire(ctx, "collection:1", 10*time.Second); err != nil || !ok {
		t.Fatalf("expected expired lock to be free: ok=%v err=%v", ok, err)
	}
}

func TestLockRepoRefreshExtendsOnlyOwnHold(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	repo := NewLockRepo(client)
	ctx := context.Background()

	token, ok, err := repo.Acquire(ctx, "collection:2", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	mr.FastForward(8 * time.Second)

	held, err := repo.Refresh(ctx, "collection:2", token, 10*time.Second)
	if err != nil || !held {
		t.Fatalf("refresh own hold: held=%v err=%v", held, err)
	}
	mr.FastForward(8 * time.Second)
	if holder, _ := repo.Holder(ctx, "collection:2"); holder != token {
		t.Fatalf("refreshed lock expired early, holder=%q", holder)
	}

	held, err = repo.Refresh(ctx, "collection:2", "someone-else", 10*time.Second)
	if err != nil {
		t.Fatalf("refresh foreign token: %v", err)
	}
	if held {
		t.Fatalf("foreign token must not refresh the lock")
	}

	mr.FastForward(11 * time.Second)
	held, err = repo.Refresh(ctx, "collection:2", token, 10*time.Second)
	if err != nil {
		t.Fatalf("refresh after expiry: %v", err)
	}
	if held {
		t.Fatalf("expected expired lock to report lost")
	}
}

func TestLockRepoRejectsEmptyKey(t *testing.T) {
	_, client := newMiniRedisClient(t)

	if _, _, err := NewLockRepo(client).Acquire(context.Background(), " ", time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestDirtyRepoPopDrainsSet(t *testing.T) {
	_, client := newMiniRedisClient(t)
	repo := NewDirtyRepo(client)
	ctx := context.Background()

	for _, id := range []int64{3, 5, 3, 9} {
		if err := repo.MarkDirty(ctx, id); err != nil {
			t.Fatalf("mark dirty %d: %v", id, err)
		}
	}
	pending, err := repo.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 3 {
		t.Fatalf("expected 3 pending collections, got %d", pending)
	}

	first, err := repo.Pop(ctx, 2)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	rest, err := repo.Pop(ctx, 10)
	if err != nil {
		t.Fatalf("pop rest: %v", err)
	}
	all := append(first, rest...)
	slices.Sort(all)
	if !slices.Equal(all, []int64{3, 5, 9}) {
		t.Fatalf("unexpected popped ids: %v", all)
	}

	empty, err := repo.Pop(ctx, 10)
	if err != nil {
		t.Fatalf("pop empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty set, got %v", empty)
	}
}

func TestRunStatusRepoKeepsLatestPerKind(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	repo := NewRunStatusRepo(client)
	ctx := context.Background()

	if err := repo.SaveRun(ctx, 4, "generate", []byte(`{"run_id":"a"}`)); err != nil {
		t.Fatalf("save generate: %v", err)
	}
	if err := repo.SaveRun(ctx, 4, "generate", []byte(`{"run_id":"b"}`)); err != nil {
		t.Fatalf("save generate again: %v", err)
	}
	if err := repo.SaveRun(ctx, 4, "reconcile", []byte(`{"run_id":"c"}`)); err != nil {
		t.Fatalf("save reconcile: %v", err)
	}

	runs, err := repo.LatestRuns(ctx, 4)
	if err != nil {
		t.Fatalf("latest runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 run kinds, got %d", len(runs))
	}
	if string(runs["generate"]) != `{"run_id":"b"}` {
		t.Fatalf("unexpected generate payload: %s", runs["generate"])
	}
	if ttl := mr.TTL("runs:4"); ttl <= 0 {
		t.Fatalf("expected ttl on run status key, got %v", ttl)
	}

	other, err := repo.LatestRuns(ctx, 5)
	if err != nil {
		t.Fatalf("latest runs for empty collection: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no runs, got %v", other)
	}
}
