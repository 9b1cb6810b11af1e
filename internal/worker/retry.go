package worker

import (
	"math"
	"time"
)

const maxJitter = 0.5

// RetryPolicy decides whether a failed outbox delivery is tried again and when.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter is the fraction of a delay by which it may move either way, capped at 0.5.
	Jitter float64
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = time.Minute
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}
	r.Jitter = math.Min(math.Max(r.Jitter, 0), maxJitter)
	return r
}

// ShouldRetry reports whether a message that failed its attempt-th delivery
// (1-based) gets another one. With MaxRetries 3 the third failure is final.
func (r RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < r.MaxRetries
}

// NextDelay returns the backoff for a given attempt (1-based), clamped to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Delay spreads NextDelay(attempt) by Jitter. roll is a uniform sample in [0, 1):
// 0 gives the shortest delay, 0.5 the plain backoff.
func (r RetryPolicy) Delay(attempt int, roll float64) time.Duration {
	d := r.NextDelay(attempt)
	jitter := math.Min(math.Max(r.Jitter, 0), maxJitter)
	if jitter == 0 {
		return d
	}
	spread := float64(d) * jitter
	return time.Duration(float64(d) - spread + 2*spread*roll)
}
