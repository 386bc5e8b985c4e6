package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
	"golang.org/x/sync/semaphore"
)

// Budget is the process-wide admission controller for remote calls. A permit
// holds one concurrency slot and has consumed one token.
type Budget struct {
	tokens        TokenSource
	slots         *semaphore.Weighted
	maxConcurrent int64

	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time

	inFlight atomic.Int64
	peak     atomic.Int64

	mu             sync.Mutex
	throttledUntil time.Time
}

func NewBudget(cfg core.RateLimitConfig) *Budget {
	var tokens TokenSource
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case core.RateLimitModeSmooth:
		tokens = NewSmoothTokens(cfg.Ceiling, cfg.RefillAmount, cfg.Window)
	default:
		tokens = NewWindowTokens(cfg.Ceiling, cfg.RefillAmount, cfg.Window)
	}
	return NewBudgetWithTokens(tokens, cfg.MaxConcurrent)
}

func NewBudgetWithTokens(tokens TokenSource, maxConcurrent int) *Budget {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Budget{
		tokens:        tokens,
		slots:         semaphore.NewWeighted(int64(maxConcurrent)),
		maxConcurrent: int64(maxConcurrent),
		Now: func() time.Time {
			return time.Now().UTC()
		},
		After: time.After,
	}
}

type Permit struct {
	budget   *Budget
	released atomic.Bool
}

// Release returns the concurrency slot. Calling it more than once is a no-op.
func (p *Permit) Release() {
	if p == nil || p.budget == nil {
		return
	}
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	p.budget.inFlight.Add(-1)
	p.budget.slots.Release(1)
}

// Acquire blocks until a concurrency slot, any server-requested cooldown and a
// token are all available.
func (b *Budget) Acquire(ctx context.Context) (*Permit, error) {
	if b == nil || b.tokens == nil || b.slots == nil {
		return nil, budgetError("ratelimit: budget is not configured", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := b.slots.Acquire(ctx, 1); err != nil {
		return nil, budgetError("ratelimit: acquire concurrency slot", err)
	}
	if err := b.waitCooldown(ctx); err != nil {
		b.slots.Release(1)
		return nil, budgetError("ratelimit: wait for cooldown", err)
	}
	if err := b.tokens.Wait(ctx); err != nil {
		b.slots.Release(1)
		return nil, budgetError("ratelimit: acquire token", err)
	}
	b.trackInFlight(b.inFlight.Add(1))
	return &Permit{budget: b}, nil
}

// Do runs fn while holding a permit and always releases it.
func (b *Budget) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	permit, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer permit.Release()
	return fn(ctx)
}

// ThrottleUntil pauses admission of new permits until the given instant.
func (b *Budget) ThrottleUntil(until time.Time) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if until.After(b.throttledUntil) {
		b.throttledUntil = until.UTC()
	}
}

func (b *Budget) ThrottledUntil() time.Time {
	if b == nil {
		return time.Time{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.throttledUntil
}

func (b *Budget) InFlight() int {
	if b == nil {
		return 0
	}
	return int(b.inFlight.Load())
}

// Peak is the highest number of simultaneously held permits observed.
func (b *Budget) Peak() int {
	if b == nil {
		return 0
	}
	return int(b.peak.Load())
}

func (b *Budget) MaxConcurrent() int {
	if b == nil {
		return 0
	}
	return int(b.maxConcurrent)
}

func (b *Budget) waitCooldown(ctx context.Context) error {
	for {
		until := b.ThrottledUntil()
		now := b.now()
		if until.IsZero() || !now.Before(until) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.after(until.Sub(now)):
		}
	}
}

func (b *Budget) trackInFlight(current int64) {
	for {
		peak := b.peak.Load()
		if current <= peak || b.peak.CompareAndSwap(peak, current) {
			return
		}
	}
}

func (b *Budget) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

func (b *Budget) after(d time.Duration) <-chan time.Time {
	if b.After != nil {
		return b.After(d)
	}
	return time.After(d)
}

func budgetError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.ServiceErrorInternal)
	}
	return goerrors.Wrap(source, goerrors.CategoryRateLimit, message).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.ServiceErrorRateLimited)
}
