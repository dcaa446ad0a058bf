package agent

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Backoff strategies.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// DefaultBackoffInterval is the pause between failed attempts.
const DefaultBackoffInterval = 20 * time.Second

const maxDelay = float64(math.MaxInt64)

// Backoff controls the pause between failed model invocations.
// The zero value never waits.
type Backoff struct {
	Strategy       string
	Interval       time.Duration
	MaxInterval    time.Duration
	JitterFraction float64
}

// DefaultBackoff returns a fixed 20 second pause without jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Strategy: BackoffFixed,
		Interval: DefaultBackoffInterval,
	}
}

// NoBackoff returns a backoff that never waits.
func NoBackoff() Backoff {
	return Backoff{Strategy: BackoffFixed}
}

// ParseBackoff builds a Backoff from configuration values. Empty strings
// fall back to the defaults.
func ParseBackoff(strategy, interval, maxInterval string) (Backoff, error) {
	b := DefaultBackoff()
	if strategy != "" {
		switch strategy {
		case BackoffFixed, BackoffExponential:
			b.Strategy = strategy
		default:
			return b, fmt.Errorf("unknown backoff strategy %q (must be %s or %s)", strategy, BackoffFixed, BackoffExponential)
		}
	}
	if interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return b, fmt.Errorf("invalid backoff %q: %w", interval, err)
		}
		if d < 0 {
			return b, fmt.Errorf("backoff must not be negative, got %s", interval)
		}
		b.Interval = d
	}
	if maxInterval != "" {
		d, err := time.ParseDuration(maxInterval)
		if err != nil {
			return b, fmt.Errorf("invalid max backoff %q: %w", maxInterval, err)
		}
		b.MaxInterval = d
	}
	return b, nil
}

// Delay returns the pause after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Interval <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	base := float64(b.Interval)
	if b.Strategy == BackoffExponential {
		base *= math.Pow(2, float64(attempt-1))
	}
	if b.MaxInterval > 0 && base > float64(b.MaxInterval) {
		base = float64(b.MaxInterval)
	}
	if base >= maxDelay {
		base = maxDelay
	}

	if b.JitterFraction > 0 {
		base += base * b.JitterFraction * (rand.Float64()*2 - 1) // ±jitter
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not convert.
	if base >= maxDelay {
		return time.Duration(math.MaxInt64)
	}
	if base <= 0 {
		return 0
	}
	return time.Duration(base)
}
