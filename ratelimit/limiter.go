// Package ratelimit provides an admission controller for scarce downstream
// resources, typically model completion endpoints. A Limiter bounds the
// number of in-flight requests (burst size) and enforces a minimum interval
// between request starts (requests per minute), optionally backing off after
// failures the caller classifies as rate-limit responses.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultRPM is the request rate applied when a strategy leaves RPM zero.
	DefaultRPM = 500
	// DefaultBurst is the in-flight bound applied when a strategy leaves
	// Burst zero.
	DefaultBurst = 10
	// DefaultCooldownBase is the first cooldown window after a rate-limit
	// classified failure.
	DefaultCooldownBase = time.Second

	// caps the exponential escalation so the shift cannot overflow
	maxCooldownShift = 16
)

// Strategy configures a Limiter. The zero value is usable: it resolves to the
// "global" limiter id with default rate, burst, and cooldown settings.
type Strategy struct {
	// ID addresses a limiter in a Registry. Strategies sharing an ID share
	// one limiter instance.
	ID string
	// RPM is the sustained request rate: successive request starts are at
	// least one minute/RPM apart.
	RPM int
	// Burst is the maximum number of concurrently admitted requests.
	Burst int
	// CooldownBase is the first backoff window after a rate-limit classified
	// failure. Successive failures double it.
	CooldownBase time.Duration
	// CooldownMax caps the backoff window. Zero means uncapped.
	CooldownMax time.Duration
	// IsRateLimit classifies errors observed by Do. A nil classifier
	// disables the cooldown behavior entirely.
	IsRateLimit func(error) bool
}

func (s Strategy) withDefaults() Strategy {
	if s.ID == "" {
		s.ID = "global"
	}
	if s.RPM <= 0 {
		s.RPM = DefaultRPM
	}
	if s.Burst <= 0 {
		s.Burst = DefaultBurst
	}
	if s.CooldownBase <= 0 {
		s.CooldownBase = DefaultCooldownBase
	}
	return s
}

// Limiter is a reusable admission gate shared by all branches of a fan-out.
// Admission takes one of Burst concurrency slots, then waits for the shared
// "next permitted start" watermark; the watermark only ever advances, so the
// rate bound holds even for bursts arriving faster than the configured rate.
type Limiter struct {
	interval     time.Duration
	sem          chan struct{}
	isRateLimit  func(error) bool
	cooldownBase time.Duration
	cooldownMax  time.Duration

	mu        sync.Mutex
	next      time.Time
	notBefore time.Time
	cooldowns int
}

// New creates a Limiter from the given strategy.
func New(strategy Strategy) *Limiter {
	strategy = strategy.withDefaults()
	return &Limiter{
		interval:     time.Minute / time.Duration(strategy.RPM),
		sem:          make(chan struct{}, strategy.Burst),
		isRateLimit:  strategy.IsRateLimit,
		cooldownBase: strategy.CooldownBase,
		cooldownMax:  strategy.CooldownMax,
	}
}

// Acquire blocks until the caller is admitted: a concurrency slot is free and
// the timing watermark (and any active cooldown window) has passed. It fails
// only when ctx is done, in which case no slot is held.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Reserve a start slot under the lock so concurrent acquirers never
	// compute the next watermark from a stale read, then wait outside it.
	l.mu.Lock()
	start := time.Now()
	if l.next.After(start) {
		start = l.next
	}
	if l.notBefore.After(start) {
		start = l.notBefore
	}
	l.next = start.Add(l.interval)
	l.mu.Unlock()

	if wait := time.Until(start); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			l.Release()
			return ctx.Err()
		}
	}
	return nil
}

// Release returns the concurrency slot taken by a successful Acquire. Every
// Acquire must be paired with exactly one Release on every exit path.
func (l *Limiter) Release() {
	<-l.sem
}

// Do runs fn under the limiter: acquire on entry, release on exit, whatever
// fn returns. It is also the cooldown observation point: an error classified
// as a rate limit arms (and escalates) the cooldown window, any other
// completion resets it. fn's error is returned unchanged.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	err := fn(ctx)
	l.Release()
	l.observe(err)
	return err
}

func (l *Limiter) observe(err error) {
	if l.isRateLimit == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil && l.isRateLimit(err) {
		shift := l.cooldowns
		if shift > maxCooldownShift {
			shift = maxCooldownShift
		}
		window := l.cooldownBase << shift
		if l.cooldownMax > 0 && window > l.cooldownMax {
			window = l.cooldownMax
		}
		l.notBefore = time.Now().Add(window)
		l.cooldowns++
		return
	}

	l.cooldowns = 0
	l.notBefore = time.Time{}
}
