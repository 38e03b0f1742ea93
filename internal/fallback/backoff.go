package fallback

import (
	"context"
	"time"

	"splice/internal/config"
)

// Backoff computes the delay before a retry against the same provider.
type Backoff struct {
	Mode string
	Base time.Duration
	Max  time.Duration
}

// BackoffFromConfig builds the backoff described by the pipeline settings.
func BackoffFromConfig(p config.Pipeline) Backoff {
	return Backoff{
		Mode: p.BackoffMode,
		Base: time.Duration(p.BackoffBaseMillis) * time.Millisecond,
		Max:  time.Duration(p.BackoffMaxMillis) * time.Millisecond,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
// Fixed mode always waits Base; exponential mode doubles per attempt and is
// capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Base
	if b.Mode != config.BackoffFixed {
		for i := 1; i < attempt; i++ {
			delay *= 2
			if b.Max > 0 && delay >= b.Max {
				break
			}
		}
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
