package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock reads so chunking and polling logic can be
// tested without real time.
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts fixed-interval waits (report status polling). The system
// implementation honours context cancellation between intervals.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewSystemClock() Clock { return systemClock{} }

type systemSleeper struct{}

func (systemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func NewSystemSleeper() Sleeper { return systemSleeper{} }

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
	fx.Provide(NewSystemSleeper),
)
