package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

const dirtyCollectionsKey = "set:collections:dirty"

// DirtyRepo is the set of collections edited by hand since their last
// reconcile pass.
type DirtyRepo struct {
	client *goredis.Client
}

func NewDirtyRepo(client *goredis.Client) *DirtyRepo {
	return &DirtyRepo{client: client}
}

func (r *DirtyRepo) MarkDirty(ctx context.Context, collectionID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if collectionID <= 0 {
		return fmt.Errorf("invalid collection id")
	}
	if err := r.client.SAdd(ctx, dirtyCollectionsKey, collectionID).Err(); err != nil {
		return fmt.Errorf("mark collection %d dirty: %w", collectionID, err)
	}
	return nil
}

// Pop removes and returns up to limit dirty collection ids.
func (r *DirtyRepo) Pop(ctx context.Context, limit int) ([]int64, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if limit <= 0 {
		limit = 1
	}

	members, err := r.client.SPopN(ctx, dirtyCollectionsKey, int64(limit)).Result()
	if err != nil && err != goredis.Nil {
		return nil, fmt.Errorf("pop dirty collections: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *DirtyRepo) Pending(ctx context.Context) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	n, err := r.client.SCard(ctx, dirtyCollectionsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count dirty collections: %w", err)
	}
	return n, nil
}
