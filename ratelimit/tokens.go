package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenSource hands out one token per remote call. *rate.Limiter satisfies it.
type TokenSource interface {
	Wait(ctx context.Context) error
}

// WindowTokens is a fixed-window bucket: it starts full at Ceiling and adds
// RefillAmount tokens at every Window boundary, never exceeding Ceiling.
type WindowTokens struct {
	ceiling int
	refill  int
	window  time.Duration

	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time

	mu          sync.Mutex
	available   int
	windowStart time.Time
}

func NewWindowTokens(ceiling int, refill int, window time.Duration) *WindowTokens {
	if ceiling <= 0 {
		ceiling = 1
	}
	if refill <= 0 || refill > ceiling {
		refill = ceiling
	}
	if window <= 0 {
		window = time.Second
	}
	return &WindowTokens{
		ceiling:   ceiling,
		refill:    refill,
		window:    window,
		available: ceiling,
		Now: func() time.Time {
			return time.Now().UTC()
		},
		After: time.After,
	}
}

func (w *WindowTokens) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.mu.Lock()
		now := w.now()
		w.refillLocked(now)
		if w.available > 0 {
			w.available--
			w.mu.Unlock()
			return nil
		}
		wait := w.windowStart.Add(w.window).Sub(now)
		w.mu.Unlock()

		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.after(wait):
		}
	}
}

// Allow takes a token without blocking.
func (w *WindowTokens) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refillLocked(w.now())
	if w.available <= 0 {
		return false
	}
	w.available--
	return true
}

func (w *WindowTokens) Available() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refillLocked(w.now())
	return w.available
}

func (w *WindowTokens) refillLocked(now time.Time) {
	if w.windowStart.IsZero() {
		w.windowStart = now
		return
	}
	elapsed := now.Sub(w.windowStart)
	if elapsed < w.window {
		return
	}
	windows := int(elapsed / w.window)
	w.available += windows * w.refill
	if w.available > w.ceiling {
		w.available = w.ceiling
	}
	w.windowStart = w.windowStart.Add(time.Duration(windows) * w.window)
}

func (w *WindowTokens) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *WindowTokens) after(d time.Duration) <-chan time.Time {
	if w.After != nil {
		return w.After(d)
	}
	return time.After(d)
}

// NewSmoothTokens spreads RefillAmount tokens evenly across the window with a
// burst of Ceiling.
func NewSmoothTokens(ceiling int, refill int, window time.Duration) *rate.Limiter {
	if ceiling <= 0 {
		ceiling = 1
	}
	if refill <= 0 {
		refill = ceiling
	}
	if window <= 0 {
		window = time.Second
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(refill)), ceiling)
}

// ManualTokens only refills when told to. Useful where tests need a budget
// with controllable replenishment.
type ManualTokens struct {
	mu        sync.Mutex
	available int
	taken     int
	refilled  chan struct{}
}

func NewManualTokens(initial int) *ManualTokens {
	if initial < 0 {
		initial = 0
	}
	return &ManualTokens{available: initial, refilled: make(chan struct{})}
}

func (m *ManualTokens) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.Lock()
		if m.available > 0 {
			m.available--
			m.taken++
			m.mu.Unlock()
			return nil
		}
		refilled := m.refilled
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refilled:
		}
	}
}

func (m *ManualTokens) Refill(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available += n
	close(m.refilled)
	m.refilled = make(chan struct{})
}

func (m *ManualTokens) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *ManualTokens) Taken() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taken
}

var (
	_ TokenSource = (*WindowTokens)(nil)
	_ TokenSource = (*ManualTokens)(nil)
	_ TokenSource = (*rate.Limiter)(nil)
)
