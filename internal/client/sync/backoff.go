package sync

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// BackoffPolicy describes the delay between transient write failures:
// min(Max, Base * 2^(attempt-1)) with JitterPercent of random jitter.
type BackoffPolicy struct {
	Base          time.Duration
	Max           time.Duration
	JitterPercent uint64
}

// DefaultBackoff is used when the configured policy has no base
var DefaultBackoff = BackoffPolicy{
	Base:          time.Second,
	Max:           5 * time.Minute,
	JitterPercent: 10,
}

// Delay returns the wait before retry number attempt (1-based)
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if p.Max <= 0 && attempt > maxUncappedAttempt {
		attempt = maxUncappedAttempt
	}

	b := p.backoff()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d, _ = b.Next()
		// дальше значения не растут, а сдвиг base может переполниться
		if p.Max > 0 && d >= p.Max {
			break
		}
	}
	return d
}

// maxUncappedAttempt ограничивает сдвиг base без потолка
const maxUncappedAttempt = 30

// Retry returns the schedule as a retry.Backoff for retry.Do loops.
func (p BackoffPolicy) Retry() retry.Backoff {
	return p.backoff()
}

func (p BackoffPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = DefaultBackoff.Base
	}

	// NewExponential начинает с base и удваивает на каждом шаге
	b := retry.NewExponential(base)
	if p.JitterPercent > 0 {
		b = retry.WithJitterPercent(p.JitterPercent, b)
	}
	if p.Max > 0 {
		// потолок после джиттера: задержка никогда не превышает Max
		b = retry.WithCappedDuration(p.Max, b)
	}
	return b
}
