// Package ratelimit implements the token-bucket throttle that gates
// outbound model calls. A bucket is an explicitly constructed object with a
// caller-owned lifetime; sharing a throttle across concurrent requests
// means sharing one *Bucket instance, never hidden package state.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Polling bounds for Acquire. A waiter sleeps for the time remaining until
// the next refill, clamped to this window, so it neither spins nor
// oversleeps a short refill interval.
const (
	minPollInterval = 100 * time.Millisecond
	maxPollInterval = 1 * time.Second
)

// Config holds the bucket parameters.
type Config struct {
	// Capacity is the maximum number of tokens the bucket holds.
	Capacity float64

	// RefillRate is the number of tokens added per refill cycle.
	RefillRate float64

	// RefillInterval is the length of one refill cycle.
	RefillInterval time.Duration

	// MaxWait bounds how long a single Acquire call may block.
	MaxWait time.Duration
}

// ConfigUpdate carries a partial configuration change; nil fields keep
// their current value.
type ConfigUpdate struct {
	Capacity       *float64
	RefillRate     *float64
	RefillInterval *time.Duration
	MaxWait        *time.Duration
}

// AcquireTimeoutError is returned when an Acquire call cannot obtain its
// tokens within the bucket's wait budget.
type AcquireTimeoutError struct {
	TokensRequired float64
	MaxWait        time.Duration
}

// Error implements the error interface.
func (e *AcquireTimeoutError) Error() string {
	return fmt.Sprintf("rate limit: could not acquire %g token(s) within %s",
		e.TokensRequired, e.MaxWait)
}

// Bucket is a token bucket with lazy, drift-free refill. All state is
// guarded by a single mutex so concurrent acquirers never double-count an
// elapsed interval. The zero value is not usable; use New.
type Bucket struct {
	mu         sync.Mutex
	cfg        Config
	tokens     float64
	lastRefill time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New creates a full bucket with the given configuration.
func New(cfg Config) *Bucket {
	b := &Bucket{
		cfg:    cfg,
		tokens: cfg.Capacity,
		now:    time.Now,
	}
	b.lastRefill = b.now()
	return b
}

// refillLocked applies every whole refill cycle that has elapsed since
// lastRefill. It advances lastRefill by the consumed cycles rather than to
// now, so partial cycles are never lost to drift. Callers must hold mu.
func (b *Bucket) refillLocked() {
	if b.cfg.RefillInterval <= 0 {
		return
	}

	elapsed := b.now().Sub(b.lastRefill)
	cycles := math.Floor(float64(elapsed) / float64(b.cfg.RefillInterval))
	if cycles < 1 {
		return
	}

	b.tokens = math.Min(b.cfg.Capacity, b.tokens+cycles*b.cfg.RefillRate)
	b.lastRefill = b.lastRefill.Add(time.Duration(cycles) * b.cfg.RefillInterval)
}

// Acquire blocks until n tokens are available, consuming them, or fails
// with *AcquireTimeoutError once the bucket's MaxWait has elapsed since
// the call began. Waiting is cooperative polling with a bounded sleep;
// ctx cancellation interrupts the wait.
func (b *Bucket) Acquire(ctx context.Context, n float64) error {
	start := b.now()

	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= n {
			b.tokens -= n
			b.mu.Unlock()
			return nil
		}
		untilNext := b.timeUntilNextTokenLocked()
		// Snapshot the wait budget under the lock; UpdateConfig may change
		// it while a waiter polls.
		maxWait := b.cfg.MaxWait
		b.mu.Unlock()

		if b.now().Sub(start) >= maxWait {
			return &AcquireTimeoutError{TokensRequired: n, MaxWait: maxWait}
		}

		sleep := untilNext
		if sleep < minPollInterval {
			sleep = minPollInterval
		}
		if sleep > maxPollInterval {
			sleep = maxPollInterval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// CanAcquire reports whether n tokens are available right now, without
// consuming them.
func (b *Bucket) CanAcquire(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	return b.tokens >= n
}

// AvailableTokens returns the current token count after applying any
// pending refill.
func (b *Bucket) AvailableTokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	return b.tokens
}

// TimeUntilNextToken returns how long until the next refill cycle grants
// tokens, or zero if tokens are available now.
func (b *Bucket) TimeUntilNextToken() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	return b.timeUntilNextTokenLocked()
}

// timeUntilNextTokenLocked assumes refillLocked has just run, so the next
// grant is one full interval from lastRefill. Callers must hold mu.
func (b *Bucket) timeUntilNextTokenLocked() time.Duration {
	if b.tokens >= 1 {
		return 0
	}
	next := b.lastRefill.Add(b.cfg.RefillInterval)
	until := next.Sub(b.now())
	if until < 0 {
		return 0
	}
	return until
}

// Reset reinitializes the bucket to full capacity. Intended for test
// isolation.
func (b *Bucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = b.cfg.Capacity
	b.lastRefill = b.now()
}

// UpdateConfig merges the partial update into the current configuration.
// If the capacity shrinks below the current token count, tokens are
// clamped to the new capacity.
func (b *Bucket) UpdateConfig(update ConfigUpdate) Config {
	b.mu.Lock()
	defer b.mu.Unlock()

	if update.Capacity != nil {
		b.cfg.Capacity = *update.Capacity
	}
	if update.RefillRate != nil {
		b.cfg.RefillRate = *update.RefillRate
	}
	if update.RefillInterval != nil {
		b.cfg.RefillInterval = *update.RefillInterval
	}
	if update.MaxWait != nil {
		b.cfg.MaxWait = *update.MaxWait
	}

	if b.tokens > b.cfg.Capacity {
		b.tokens = b.cfg.Capacity
	}

	return b.cfg
}

// Configuration returns a copy of the current configuration.
func (b *Bucket) Configuration() Config {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cfg
}
