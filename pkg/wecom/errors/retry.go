package errors

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig tunes the exponential backoff used between delivery attempts.
type RetryConfig struct {
	BaseDelay  time.Duration `json:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay"`
	Multiplier float64       `json:"multiplier"`
	Jitter     bool          `json:"jitter"`
}

// DefaultRetryConfig returns the backoff configuration used when none is supplied.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// RetryDelay computes the backoff before the given attempt (1-based):
// min(maxDelay, base * multiplier^(attempt-1)), jittered by ±10% uniformly
// when enabled. Pure aside from the jitter draw.
func RetryDelay(attempt int, cfg RetryConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultRetryConfig().Multiplier
	}
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		delay *= 0.9 + 0.2*rand.Float64()
	}
	return time.Duration(delay)
}

// Policy is the per-code retry budget: how many retries a classified error is
// worth and the base delay between them.
type Policy struct {
	MaxRetries int           `json:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay"`
}

// PolicyFor returns the retry policy for a code, tuned inversely to its
// severity: critical errors get one slow retry, low-severity errors get many
// fast ones.
func PolicyFor(code int) Policy {
	switch SeverityOf(code) {
	case SeverityCritical:
		return Policy{MaxRetries: 1, BaseDelay: 5 * time.Second}
	case SeverityHigh:
		return Policy{MaxRetries: 2, BaseDelay: 2 * time.Second}
	case SeverityMedium:
		return Policy{MaxRetries: 3, BaseDelay: 1 * time.Second}
	default:
		return Policy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond}
	}
}
