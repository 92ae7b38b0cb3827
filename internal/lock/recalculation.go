package lock

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vatledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyRecalculation = "vatledger:recalculate:lock"

// RecalculationGuard keeps batch recalculation to one runner across instances.
// A nil guard always grants the lock.
type RecalculationGuard struct {
	locker *Locker
	ttl    time.Duration
}

func NewRecalculationGuard(locker *Locker, ttl time.Duration) *RecalculationGuard {
	if locker == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RecalculationGuard{locker: locker, ttl: ttl}
}

// Acquire returns a release func when the lock is held, or ok=false when another
// run owns it.
func (g *RecalculationGuard) Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error) {
	if g == nil {
		return func(context.Context) error { return nil }, true, nil
	}
	token, ok, err := g.locker.TryLock(ctx, keyRecalculation, g.ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return func(ctx context.Context) error {
		return g.locker.Release(ctx, keyRecalculation, token)
	}, true, nil
}

// NewRedisClient returns nil when no redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("redis not configured, recalculation lock disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideGuard(client *redis.Client, cfg config.Config) *RecalculationGuard {
	return NewRecalculationGuard(NewLocker(client), cfg.RecalculateLockTTL)
}

var Module = fx.Module("lock",
	fx.Provide(
		NewRedisClient,
		provideGuard,
	),
)
