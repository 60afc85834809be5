package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marginfox/marginfox/internal/clock"
	"github.com/marginfox/marginfox/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyAPIBucket = "spapi:bucket:%s"
	keySyncLock  = "sync:lock:%s:%s"

	syncLockTTL = 2 * time.Hour
	minWait     = 50 * time.Millisecond
)

// Limiter gates outbound marketplace API calls. Wait blocks until a token
// is available for the key or the context is cancelled.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

type Params struct {
	fx.In

	Config  config.Config
	Clock   clock.Clock
	Sleeper clock.Sleeper
	Log     *zap.Logger
}

// APILimiter throttles marketplace API calls per account. With a redis
// address configured the budget is shared across processes; without one it
// degrades to an in-process bucket.
type APILimiter struct {
	bucket  *TokenBucket
	local   *localBucket
	locker  *Locker
	rate    float64
	burst   int
	sleeper clock.Sleeper
	log     *zap.Logger
}

func NewAPILimiter(p Params) *APILimiter {
	l := &APILimiter{
		local:   newLocalBucket(p.Clock),
		rate:    p.Config.SPAPIRate,
		burst:   p.Config.SPAPIBurst,
		sleeper: p.Sleeper,
		log:     p.Log.Named("ratelimit"),
	}

	if addr := strings.TrimSpace(p.Config.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(p.Config.RedisPassword),
			DB:       p.Config.RedisDB,
		})
		l.bucket = NewTokenBucket(client)
		l.locker = NewLocker(client)
	}

	return l
}

func (l *APILimiter) Wait(ctx context.Context, key string) error {
	bucketKey := fmt.Sprintf(keyAPIBucket, key)
	for {
		res, err := l.allow(ctx, bucketKey)
		if err != nil {
			return err
		}
		if res.Allowed {
			return nil
		}
		wait := res.RetryAfter
		if wait < minWait {
			wait = minWait
		}
		if err := l.sleeper.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *APILimiter) allow(ctx context.Context, key string) (*Result, error) {
	if l.bucket == nil {
		return l.local.Allow(key, l.rate, l.burst), nil
	}
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		// Redis being down must not stall syncs. Fall back to the
		// process-local budget until it recovers.
		l.log.Warn("redis bucket unavailable, using local bucket", zap.Error(err))
		return l.local.Allow(key, l.rate, l.burst), nil
	}
	return res, nil
}

// TryLockSync takes a per-account sync lease so overlapping sync triggers
// do not run concurrently against the same account. Without redis the lease
// always succeeds; single-process installs rely on the dedup engine instead.
func (l *APILimiter) TryLockSync(ctx context.Context, accountID, jobType string) (string, bool, error) {
	if l.locker == nil {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keySyncLock, accountID, jobType), syncLockTTL)
}

func (l *APILimiter) ReleaseSync(ctx context.Context, accountID, jobType, token string) error {
	if l.locker == nil {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keySyncLock, accountID, jobType), token)
}
