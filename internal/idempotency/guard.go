// Package idempotency keeps concurrent deliveries of the same webhook from
// being processed in parallel. The database unique constraint on references
// stays the source of truth; the guard only avoids wasted serializable retries.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// Acquire reports whether key was free; release must be called when ok is true.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type RedisGuard struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisGuard(rdb redis.UniversalClient, prefix string) *RedisGuard {
	return &RedisGuard{rdb: rdb, prefix: prefix}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	k := g.prefix + key
	ok, err := g.rdb.SetNX(ctx, k, "1", ttl).Result()
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() { g.rdb.Del(context.Background(), k) }, true, nil
}

// LocalGuard is a process-local guard for single-instance deployments.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalGuard() *LocalGuard { return &LocalGuard{held: map[string]time.Time{}} }

func (g *LocalGuard) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if exp, ok := g.held[key]; ok && now.Before(exp) {
		return func() {}, false, nil
	}
	g.held[key] = now.Add(ttl)
	return func() {
		g.mu.Lock()
		delete(g.held, key)
		g.mu.Unlock()
	}, true, nil
}
