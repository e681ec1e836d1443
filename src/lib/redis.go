package lib

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient(redisHost string) *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	redisClient = redis.NewClient(opt)
	return redisClient
}

// IdempotencyStore remembers webhook deliveries that were already applied.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Claim returns true for the first caller of key within the ttl. Without a
// redis client every call is treated as first.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	if s == nil || s.rdb == nil {
		return true, nil
	}
	return s.rdb.SetNX(ctx, "idem:"+key, 1, s.ttl).Result()
}

// Release forgets key so a failed delivery can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) {
	if s == nil || s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, "idem:"+key).Err(); err != nil {
		log.Printf("[redis] Error releasing %s: %s\n", key, err.Error())
	}
}
