package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-qrsync/core"
)

func TestBudget_NeverExceedsConcurrencyCeiling(t *testing.T) {
	budget := NewBudgetWithTokens(NewManualTokens(1000), 3)

	var current atomic.Int64
	var observedMax atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := budget.Do(context.Background(), func(context.Context) error {
				now := current.Add(1)
				for {
					seen := observedMax.Load()
					if now <= seen || observedMax.CompareAndSwap(seen, now) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("budget do: %v", err)
			}
		}()
	}
	wg.Wait()

	if observedMax.Load() > 3 {
		t.Fatalf("expected at most 3 concurrent permits, observed %d", observedMax.Load())
	}
	if budget.Peak() > 3 {
		t.Fatalf("expected budget peak <= 3, got %d", budget.Peak())
	}
	if budget.InFlight() != 0 {
		t.Fatalf("expected all permits released, got %d in flight", budget.InFlight())
	}
}

func TestBudget_WaitsForManualRefill(t *testing.T) {
	tokens := NewManualTokens(0)
	budget := NewBudgetWithTokens(tokens, 2)

	acquired := make(chan *Permit, 1)
	go func() {
		permit, err := budget.Acquire(context.Background())
		if err != nil {
			t.Errorf("acquire: %v", err)
			return
		}
		acquired <- permit
	}()

	select {
	case <-acquired:
		t.Fatalf("expected acquire to block without tokens")
	case <-time.After(20 * time.Millisecond):
	}

	tokens.Refill(1)
	select {
	case permit := <-acquired:
		permit.Release()
	case <-time.After(time.Second):
		t.Fatalf("expected acquire to complete after refill")
	}
	if tokens.Taken() != 1 {
		t.Fatalf("expected one token consumed, got %d", tokens.Taken())
	}
}

func TestBudget_CancelledAcquireReturnsSlot(t *testing.T) {
	tokens := NewManualTokens(0)
	budget := NewBudgetWithTokens(tokens, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := budget.Acquire(ctx); err == nil {
		t.Fatalf("expected acquire to fail when context expires")
	}

	tokens.Refill(1)
	permit, err := budget.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected slot to be free after cancelled acquire: %v", err)
	}
	permit.Release()
}

func TestPermit_ReleaseIsIdempotent(t *testing.T) {
	budget := NewBudgetWithTokens(NewManualTokens(2), 1)
	permit, err := budget.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	permit.Release()
	permit.Release()
	if budget.InFlight() != 0 {
		t.Fatalf("expected zero in flight, got %d", budget.InFlight())
	}

	second, err := budget.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire second: %v", err)
	}
	if budget.InFlight() != 1 {
		t.Fatalf("expected one in flight, got %d", budget.InFlight())
	}
	second.Release()
}

func TestBudget_DoReleasesOnError(t *testing.T) {
	budget := NewBudgetWithTokens(NewManualTokens(5), 1)
	sentinel := errors.New("remote failed")
	if err := budget.Do(context.Background(), func(context.Context) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if budget.InFlight() != 0 {
		t.Fatalf("expected permit released after failure")
	}
}

func TestBudget_NilBudgetRejects(t *testing.T) {
	var budget *Budget
	if _, err := budget.Acquire(context.Background()); err == nil {
		t.Fatalf("expected error for nil budget")
	}
}

func TestNewBudget_UsesConfiguredMode(t *testing.T) {
	window := NewBudget(core.RateLimitConfig{Ceiling: 3, RefillAmount: 3, Window: time.Second, MaxConcurrent: 2})
	if _, ok := window.tokens.(*WindowTokens); !ok {
		t.Fatalf("expected window tokens by default, got %T", window.tokens)
	}
	if window.MaxConcurrent() != 2 {
		t.Fatalf("expected max concurrent 2, got %d", window.MaxConcurrent())
	}

	smooth := NewBudget(core.RateLimitConfig{Mode: "smooth", Ceiling: 3, RefillAmount: 3, Window: time.Second, MaxConcurrent: 1})
	if smooth.tokens == nil {
		t.Fatalf("expected smooth token source")
	}
	if _, ok := smooth.tokens.(*WindowTokens); ok {
		t.Fatalf("expected rate limiter for smooth mode")
	}
}

func TestWindowTokens_RefillsPerWindowUpToCeiling(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewWindowTokens(3, 2, time.Second)
	tokens.Now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !tokens.Allow() {
			t.Fatalf("expected token %d to be available", i+1)
		}
	}
	if tokens.Allow() {
		t.Fatalf("expected bucket to be empty within the window")
	}

	clock = clock.Add(999 * time.Millisecond)
	if tokens.Allow() {
		t.Fatalf("expected no refill before the window boundary")
	}

	clock = clock.Add(time.Millisecond)
	if got := tokens.Available(); got != 2 {
		t.Fatalf("expected refill amount of 2, got %d", got)
	}

	clock = clock.Add(10 * time.Second)
	if got := tokens.Available(); got != 3 {
		t.Fatalf("expected refill capped at ceiling 3, got %d", got)
	}
}

func TestWindowTokens_WaitSleepsUntilNextWindow(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var waits []time.Duration
	tokens := NewWindowTokens(1, 1, time.Second)
	tokens.Now = func() time.Time { return clock }
	tokens.After = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		clock = clock.Add(d)
		ch := make(chan time.Time, 1)
		ch <- clock
		return ch
	}

	if err := tokens.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	clock = clock.Add(250 * time.Millisecond)
	if err := tokens.Wait(context.Background()); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if len(waits) != 1 || waits[0] != 750*time.Millisecond {
		t.Fatalf("expected one 750ms wait, got %v", waits)
	}
}

func TestAdmissionAdapter_ThrottlesAfterTooManyRequests(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var cooldowns []time.Duration
	budget := NewBudgetWithTokens(NewManualTokens(10), 1)
	budget.Now = func() time.Time { return clock }
	budget.After = func(d time.Duration) <-chan time.Time {
		cooldowns = append(cooldowns, d)
		clock = clock.Add(d)
		ch := make(chan time.Time, 1)
		ch <- clock
		return ch
	}

	next := &scriptedAdapter{responses: []core.TransportResponse{
		{StatusCode: http.StatusTooManyRequests, Headers: map[string]string{"Retry-After": "2"}},
		{StatusCode: http.StatusOK},
	}}
	adapter := NewAdmissionAdapter(budget, next)

	res, err := adapter.Do(context.Background(), core.TransportRequest{URL: "https://example.test"})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 to be passed through, got %d", res.StatusCode)
	}
	if budget.InFlight() != 0 {
		t.Fatalf("expected permit released after call")
	}

	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: "https://example.test"}); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(cooldowns) != 1 || cooldowns[0] != 2*time.Second {
		t.Fatalf("expected a 2s cooldown before the second call, got %v", cooldowns)
	}
	if next.calls != 2 {
		t.Fatalf("expected two calls to reach the transport, got %d", next.calls)
	}
}

func TestAdmissionAdapter_RequiresBudget(t *testing.T) {
	adapter := NewAdmissionAdapter(nil, &scriptedAdapter{})
	if _, err := adapter.Do(context.Background(), core.TransportRequest{}); err == nil {
		t.Fatalf("expected error without budget")
	}
}

type scriptedAdapter struct {
	responses []core.TransportResponse
	calls     int
}

func (*scriptedAdapter) Kind() string { return "scripted" }

func (a *scriptedAdapter) Do(context.Context, core.TransportRequest) (core.TransportResponse, error) {
	a.calls++
	if len(a.responses) == 0 {
		return core.TransportResponse{StatusCode: http.StatusOK}, nil
	}
	res := a.responses[0]
	a.responses = a.responses[1:]
	return res, nil
}
