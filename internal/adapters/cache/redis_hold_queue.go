package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const holdQueueKey = "sala:holds"

// RedisHoldQueue keeps hold deadlines in a sorted set scored by the due
// time in unix milliseconds. The worker claims due members with ZREM, so
// each deadline is handed to exactly one worker.
type RedisHoldQueue struct {
	client *redis.Client
	key    string
}

func NewRedisHoldQueue(client *redis.Client) *RedisHoldQueue {
	return &RedisHoldQueue{client: client, key: holdQueueKey}
}

func (q *RedisHoldQueue) Schedule(ctx context.Context, agreementID string, at time.Time) error {
	return q.client.ZAdd(ctx, q.key, redis.Z{Score: float64(at.UnixMilli()), Member: agreementID}).Err()
}

func (q *RedisHoldQueue) Cancel(ctx context.Context, agreementID string) error {
	return q.client.ZRem(ctx, q.key, agreementID).Err()
}

// ClaimDue removes and returns up to limit agreements due at now.
func (q *RedisHoldQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	claimed := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := q.client.ZRem(ctx, q.key, id).Result()
		if err != nil {
			return claimed, err
		}
		if n == 1 {
			claimed = append(claimed, id)
		}
	}
	return claimed, nil
}
