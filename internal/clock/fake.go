package clock

import (
	"context"
	"time"
)

type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// FakeSleeper records requested sleeps and advances an attached fake clock
// instead of blocking.
type FakeSleeper struct {
	Clock  *FakeClock
	Slept  []time.Duration
	FailAt int // when > 0, the nth Sleep call returns context.Canceled
}

func (s *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.Slept = append(s.Slept, d)
	if s.FailAt > 0 && len(s.Slept) >= s.FailAt {
		return context.Canceled
	}
	if s.Clock != nil {
		s.Clock.Advance(d)
	}
	return ctx.Err()
}
