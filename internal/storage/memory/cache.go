package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"homestay_hub/internal/domain"
)

type entry struct {
	val []byte
	exp time.Time
}

// Cache is a process-local stand-in for the redis adapter. Values are stored
// as JSON so readers never share memory with writers.
type Cache struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

var (
	_ domain.Cache          = (*Cache)(nil)
	_ domain.ChallengeStore = (*Cache)(nil)
)

func NewCache() *Cache { return &Cache{m: map[string]entry{}, now: time.Now} }

func (c *Cache) load(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && !c.now().Before(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.val, true
}

func (c *Cache) store(key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e := entry{val: b}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.load(key)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) Set(_ context.Context, key string, v any, ttlSec int) error {
	return c.store(key, v, time.Duration(ttlSec)*time.Second)
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) SaveChallenge(_ context.Context, ch domain.Challenge, ttl time.Duration) error {
	key := "otp:" + ch.Phone
	// a failed attempt keeps the original expiry and never revives an
	// expired challenge
	if ch.Attempts > 0 {
		c.mu.Lock()
		e, ok := c.m[key]
		c.mu.Unlock()
		if !ok {
			return nil
		}
		if !e.exp.IsZero() {
			ttl = e.exp.Sub(c.now())
			if ttl <= 0 {
				return c.Del(context.Background(), key)
			}
		}
	}
	return c.store(key, ch, ttl)
}

func (c *Cache) GetChallenge(_ context.Context, phone string) (domain.Challenge, bool, error) {
	b, ok := c.load("otp:" + phone)
	if !ok {
		return domain.Challenge{}, false, nil
	}
	var ch domain.Challenge
	if err := json.Unmarshal(b, &ch); err != nil {
		return domain.Challenge{}, false, err
	}
	return ch, true, nil
}

func (c *Cache) DeleteChallenge(ctx context.Context, phone string) error {
	return c.Del(ctx, "otp:"+phone)
}
