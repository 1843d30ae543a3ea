package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"homestay_hub/internal/adapters/observability"
	"homestay_hub/internal/domain"
)

// Cache serves both the JSON read cache and the one-time-code challenges.
type Cache struct{ c *redis.Client }

var (
	_ domain.Cache          = (*Cache)(nil)
	_ domain.ChallengeStore = (*Cache)(nil)
)

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func NewFromClient(c *redis.Client) *Cache { return &Cache{c: c} }

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

/********** otp challenges **********/

func challengeKey(phone string) string { return "otp:" + phone }

func (r *Cache) SaveChallenge(ctx context.Context, c domain.Challenge, ttl time.Duration) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	key := challengeKey(c.Phone)
	// a failed attempt keeps the challenge's original expiry; -2 means the
	// key already expired and must not be revived
	if c.Attempts > 0 {
		left, err := r.c.TTL(ctx, key).Result()
		switch {
		case err != nil:
			return err
		case left == -2:
			return nil
		case left > 0:
			ttl = left
		}
	}
	return r.c.Set(ctx, key, b, ttl).Err()
}

func (r *Cache) GetChallenge(ctx context.Context, phone string) (domain.Challenge, bool, error) {
	v, err := r.c.Get(ctx, challengeKey(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Challenge{}, false, nil
	}
	if err != nil {
		return domain.Challenge{}, false, err
	}
	var c domain.Challenge
	if err := json.Unmarshal(v, &c); err != nil {
		return domain.Challenge{}, false, err
	}
	return c, true, nil
}

func (r *Cache) DeleteChallenge(ctx context.Context, phone string) error {
	return r.c.Del(ctx, challengeKey(phone)).Err()
}
