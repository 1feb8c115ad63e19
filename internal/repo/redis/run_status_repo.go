package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	runStatusPrefix = "runs:"
	runStatusTTL    = 30 * 24 * time.Hour
)

// RunStatusRepo keeps the latest encoded run report per collection, one
// hash field per run kind.
type RunStatusRepo struct {
	client *goredis.Client
}

func NewRunStatusRepo(client *goredis.Client) *RunStatusRepo {
	return &RunStatusRepo{client: client}
}

func (r *RunStatusRepo) SaveRun(ctx context.Context, collectionID int64, kind string, payload []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	kind = strings.TrimSpace(kind)
	if collectionID <= 0 || kind == "" || len(payload) == 0 {
		return fmt.Errorf("invalid run status payload")
	}

	key := runStatusKey(collectionID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, kind, payload)
	pipe.Expire(ctx, key, runStatusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save run status: %w", err)
	}
	return nil
}

func (r *RunStatusRepo) LatestRuns(ctx context.Context, collectionID int64) (map[string][]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	values, err := r.client.HGetAll(ctx, runStatusKey(collectionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read run status: %w", err)
	}

	out := make(map[string][]byte, len(values))
	for kind, payload := range values {
		out[kind] = []byte(payload)
	}
	return out, nil
}

func runStatusKey(collectionID int64) string {
	return runStatusPrefix + strconv.FormatInt(collectionID, 10)
}
