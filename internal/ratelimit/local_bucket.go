package ratelimit

import (
	"sync"
	"time"

	"github.com/marginfox/marginfox/internal/clock"
)

// localBucket is the in-process fallback used when no redis address is
// configured. Same refill math as the redis script, scoped to one process.
type localBucket struct {
	mu      sync.Mutex
	clk     clock.Clock
	buckets map[string]*bucketState
}

type bucketState struct {
	tokens float64
	ts     time.Time
}

func newLocalBucket(clk clock.Clock) *localBucket {
	return &localBucket{
		clk:     clk,
		buckets: make(map[string]*bucketState),
	}
}

func (b *localBucket) Allow(key string, rate float64, burst int) *Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clk.Now()
	state, ok := b.buckets[key]
	if !ok {
		state = &bucketState{tokens: float64(burst), ts: now}
		b.buckets[key] = state
	} else {
		delta := now.Sub(state.ts)
		if delta < 0 {
			delta = 0
		}
		state.tokens += delta.Seconds() * rate
		if state.tokens > float64(burst) {
			state.tokens = float64(burst)
		}
		state.ts = now
	}

	allowed := state.tokens >= 1
	if allowed {
		state.tokens--
	}

	return &Result{
		Allowed:    allowed,
		Remaining:  state.tokens,
		RetryAfter: retryAfter(allowed, state.tokens, rate),
	}
}
