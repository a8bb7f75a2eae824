package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/letterbox/letterbox/internal/config"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "letterbox:dedup:"

// Guard reports whether work identified by key may run now. Acquire returns
// true only for the first caller within the guard's window. Release gives the
// key back after the work failed, so the next attempt is not skipped.
type Guard interface {
	Acquire(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// Acquire fails open: when redis is unreachable the work is allowed through,
// so a reminder may be repeated but never lost.
func (g *RedisGuard) Acquire(ctx context.Context, key string) bool {
	ok, err := g.rdb.SetNX(ctx, keyPrefix+key, 1, g.ttl).Result()
	if err != nil {
		log.Warnf("dedup check for %s failed, allowing: %v", key, err)
		return true
	}
	if !ok {
		log.Debugf("dedup: %s already seen", key)
	}
	return ok
}

func (g *RedisGuard) Release(ctx context.Context, key string) {
	if err := g.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		log.Warnf("dedup release for %s failed, key expires after %s: %v", key, g.ttl, err)
	}
}

// AllowAll is used when redis is disabled.
type AllowAll struct{}

func (AllowAll) Acquire(context.Context, string) bool {
	return true
}

func (AllowAll) Release(context.Context, string) {}

// NewClient connects to redis and pings it once.
func NewClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.Addr, err)
	}
	log.Infof("Connected to redis at %s", cfg.Addr)
	return rdb, nil
}
