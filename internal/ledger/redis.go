package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "fulfillment:"
	valueClaim = "claimed"
	valueDone  = "done"
	releaseLua = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`
)

var releaseScript = redis.NewScript(releaseLua)

// RedisLedger shares claims between replicas through Redis SETNX.
type RedisLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLedger creates a ledger whose keys expire after ttl.
func NewRedisLedger(rdb *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{rdb: rdb, ttl: ttl}
}

func (l *RedisLedger) Claim(ctx context.Context, orderID string) error {
	ok, err := l.rdb.SetNX(ctx, keyPrefix+orderID, valueClaim, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("claiming order %s: %w", orderID, err)
	}
	if !ok {
		return ErrAlreadyClaimed
	}
	return nil
}

// Release deletes the key only while it still holds a claim, never a done
// record.
func (l *RedisLedger) Release(ctx context.Context, orderID string) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{keyPrefix + orderID}, valueClaim).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("releasing order %s: %w", orderID, err)
	}
	return nil
}

func (l *RedisLedger) MarkDone(ctx context.Context, orderID string) error {
	if err := l.rdb.Set(ctx, keyPrefix+orderID, valueDone, l.ttl).Err(); err != nil {
		return fmt.Errorf("marking order %s done: %w", orderID, err)
	}
	return nil
}

var _ Ledger = (*RedisLedger)(nil)
