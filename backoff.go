package pdoflow

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig controls the retry delay the Worker applies after a
// transient DB error (spec.md §7: "rolled back, retried with backoff
// inside the worker loop"). It does not govern JobRecord retries —
// those are driven entirely by TriesRemaining and are immediate.
type BackoffConfig struct {
	MaxRetries          uint32
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultBackoffConfig is a conservative default: the delay starts at
// 50ms and doubles per consecutive failure up to 5s, with ±20% jitter,
// and retries never stop.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxRetries:          0, // unbounded: a DB error is never fatal to the worker
		InitialInterval:     50 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.2,
	}
}

type backoffCounter struct {
	BackoffConfig
}

// next returns the delay to wait before retrying after the attempt'th
// consecutive transient failure (1-indexed), and whether to retry at
// all (false once MaxRetries is exceeded and non-zero).
func (bc *backoffCounter) next(attempt uint32) (time.Duration, bool) {
	if bc.MaxRetries > 0 && attempt > bc.MaxRetries {
		return 0, false
	}
	exp := float64(bc.InitialInterval) * math.Pow(bc.Multiplier, float64(attempt-1))
	if exp > float64(bc.MaxInterval) {
		exp = float64(bc.MaxInterval)
	}
	if bc.RandomizationFactor > 0 {
		delta := bc.RandomizationFactor * exp
		minExp := exp - delta
		maxExp := exp + delta
		exp = minExp + rand.Float64()*(maxExp-minExp)
	}
	return time.Duration(exp), true
}
