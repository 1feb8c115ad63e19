package assignments

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// lockRefresher is implemented by lockers whose holds expire. The run keeps
// its hold alive every third of the TTL.
type lockRefresher interface {
	Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// keepLock extends the hold while a run is in progress. When the hold is
// gone the run context is cancelled with ErrLockLost. stop blocks until the
// refresher has exited.
func (s *Service) keepLock(ctx context.Context, cancel context.CancelCauseFunc, collectionID int64, key, token string) (stop func()) {
	refresher, ok := s.locker.(lockRefresher)
	if !ok {
		return func() {}
	}
	interval := s.lockTTL / 3
	if interval <= 0 {
		interval = s.lockTTL
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := refresher.Refresh(ctx, key, token, s.lockTTL)
				if err != nil {
					s.logger.Warn("refresh collection lock failed", zap.Int64("collection_id", collectionID), zap.Error(err))
					continue
				}
				if !held {
					s.logger.Error("collection lock lost during run", zap.Int64("collection_id", collectionID))
					cancel(ErrLockLost)
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// localLocker is the in-process fallback when no shared lock is configured.
// Expiry is not tracked; a holder always releases on return.
type localLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[string]string)}
}

func (l *localLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *localLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

func lockKey(collectionID int64) string {
	return "collection:" + strconv.FormatInt(collectionID, 10)
}
