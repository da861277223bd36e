// Package ratelimit gates the pace of operations against external services:
// outbound WebSocket frames, connection attempts, API requests.
//
// Two shapes of limiter are provided. The token bucket allows an initial
// burst up to the configured limit and then refills one permit per
// interval/limit, which matches how exchanges meter outbound WebSocket
// frames ("N messages per second"). The pacer spreads permits evenly across
// the interval with no burst, which suits connection-attempt budgets such as
// "500 connections per 5 minutes per domain".
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	uberratelimit "go.uber.org/ratelimit"
	"golang.org/x/time/rate"
)

// Rate is a human-readable limit: Limit operations per Interval.
type Rate struct {
	Limit    int
	Interval time.Duration
}

// IsZero reports whether the rate is unset, meaning no limiting applies.
func (r Rate) IsZero() bool {
	return r.Limit == 0 || r.Interval == 0
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Limit, r.Interval)
}

// Limiter controls the pace of operations. Wait blocks until a permit is
// available or the context is done.
type Limiter interface {
	Wait(ctx context.Context) error

	// SetRate replaces the limit at runtime.
	SetRate(r Rate) error
}

// tokenBucket implements Limiter on golang.org/x/time/rate. The bucket
// starts full, so up to Limit operations pass immediately before refill
// pacing takes over.
type tokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	rate    Rate
}

// NewTokenBucket creates a burst-capable token bucket limiter. A zero Rate
// yields an unlimited limiter.
func NewTokenBucket(r Rate) Limiter {
	tb := &tokenBucket{}
	tb.replace(r)
	return tb
}

func (tb *tokenBucket) replace(r Rate) {
	if r.IsZero() {
		tb.limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		perSecond := float64(r.Limit) / r.Interval.Seconds()
		tb.limiter = rate.NewLimiter(rate.Limit(perSecond), r.Limit)
	}
	tb.rate = r
}

func (tb *tokenBucket) Wait(ctx context.Context) error {
	tb.mu.Lock()
	limiter := tb.limiter
	tb.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return nil
}

func (tb *tokenBucket) SetRate(r Rate) error {
	if r.Limit < 0 || r.Interval < 0 {
		return fmt.Errorf("invalid rate limit: %+v", r)
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.replace(r)
	return nil
}

// pacer implements Limiter on Uber's leaky-bucket limiter. Permits are
// spaced evenly with no burst.
type pacer struct {
	mu      sync.Mutex
	limiter uberratelimit.Limiter
	rate    Rate
}

// NewPacer creates an even-spacing limiter. A zero Rate yields an unlimited
// limiter. Its Wait checks the context only before taking a permit; once
// waiting for a permit has begun, it runs to completion even if the context
// is done in the meantime.
func NewPacer(r Rate) Limiter {
	p := &pacer{}
	p.replace(r)
	return p
}

func (p *pacer) replace(r Rate) {
	if r.IsZero() {
		p.limiter = uberratelimit.NewUnlimited()
	} else {
		p.limiter = uberratelimit.New(r.Limit, uberratelimit.Per(r.Interval))
	}
	p.rate = r
}

func (p *pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()
	limiter.Take()
	return nil
}

func (p *pacer) SetRate(r Rate) error {
	if r.Limit < 0 || r.Interval < 0 {
		return fmt.Errorf("invalid rate limit: %+v", r)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replace(r)
	return nil
}
