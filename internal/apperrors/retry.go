package apperrors

import (
	"context"
	"math/rand"
	"time"
)

// BackoffConfig configures capped exponential backoff, as used by the
// stream consumer to reopen a dropped connection: initial delay
// 500-1000ms, doubling, capped.
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultStreamBackoff is the stream consumer's reconnect policy: with
// jitter, the first wait falls in [500ms,1000ms), then doubles.
func DefaultStreamBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Backoff tracks the current delay across repeated calls to Wait.
type Backoff struct {
	cfg   BackoffConfig
	delay time.Duration
}

// NewBackoff creates a Backoff starting at cfg.InitialDelay. If
// cfg.InitialDelay is zero, a random value in [500ms,1000ms) is chosen.
func NewBackoff(cfg BackoffConfig) *Backoff {
	delay := cfg.InitialDelay
	if delay == 0 {
		delay = 500*time.Millisecond + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
	}
	return &Backoff{cfg: cfg, delay: delay}
}

// Wait sleeps for the current delay (or until ctx is done, whichever comes
// first), then advances the delay for the next call.
func (b *Backoff) Wait(ctx context.Context) error {
	wait := b.delay
	if b.cfg.Jitter {
		wait = time.Duration(float64(wait) * (0.5 + rand.Float64()*0.5))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}
	b.delay = time.Duration(float64(b.delay) * b.cfg.Multiplier)
	if b.delay > b.cfg.MaxDelay {
		b.delay = b.cfg.MaxDelay
	}
	return nil
}

// Reset returns the backoff to its initial delay, called after a
// successful reconnect.
func (b *Backoff) Reset() {
	b.delay = b.cfg.InitialDelay
	if b.delay == 0 {
		b.delay = 500 * time.Millisecond
	}
}

// DefaultDownloadBackoff is the policy for one-shot downloads (the
// embedding-model fetch): fewer, longer waits than the stream reconnect
// loop, no jitter since nothing else competes for the same resource.
func DefaultDownloadBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry runs fn up to attempts times, sleeping with cfg's backoff between
// failures. It returns nil on the first success, ctx.Err() if the context
// ends first, and the last failure otherwise.
func Retry(ctx context.Context, cfg BackoffConfig, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := NewBackoff(cfg)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		if err := backoff.Wait(ctx); err != nil {
			return err
		}
	}
	return lastErr
}
