package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-qrsync/core"
)

// AdmissionAdapter admits every outbound request through the Budget. The
// permit covers one attempt only, so retry backoff never holds a slot.
type AdmissionAdapter struct {
	Budget *Budget
	Next   core.TransportAdapter

	// DefaultCooldown applies when a 429 carries no usable Retry-After.
	DefaultCooldown time.Duration
}

func NewAdmissionAdapter(budget *Budget, next core.TransportAdapter) *AdmissionAdapter {
	return &AdmissionAdapter{
		Budget:          budget,
		Next:            next,
		DefaultCooldown: time.Second,
	}
}

func (a *AdmissionAdapter) Kind() string {
	if a == nil || a.Next == nil {
		return ""
	}
	return a.Next.Kind()
}

func (a *AdmissionAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Next == nil {
		return core.TransportResponse{}, budgetError("ratelimit: admission adapter requires a transport", nil)
	}
	permit, err := a.Budget.Acquire(ctx)
	if err != nil {
		return core.TransportResponse{}, err
	}
	defer permit.Release()

	res, err := a.Next.Do(ctx, req)
	if err != nil {
		return res, err
	}
	if res.StatusCode == http.StatusTooManyRequests {
		now := a.Budget.now()
		delay, ok := parseRetryAfter(res.Headers, now)
		if !ok {
			delay = a.defaultCooldown()
		}
		a.Budget.ThrottleUntil(now.Add(delay))
	}
	return res, nil
}

func (a *AdmissionAdapter) defaultCooldown() time.Duration {
	if a != nil && a.DefaultCooldown > 0 {
		return a.DefaultCooldown
	}
	return time.Second
}

func parseRetryAfter(headers map[string]string, now time.Time) (time.Duration, bool) {
	raw := core.HeaderValue(headers, "Retry-After")
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if retryAt, err := httpDate(raw); err == nil {
		if retryAt.After(now) {
			return retryAt.Sub(now), true
		}
	}
	return 0, false
}

func httpDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("ratelimit: empty date")
	}
	if parsed, err := time.Parse(time.RFC1123, value); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse(time.RFC1123Z, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("ratelimit: invalid http date")
}

var _ core.TransportAdapter = (*AdmissionAdapter)(nil)
