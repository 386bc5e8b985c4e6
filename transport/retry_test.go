package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

type stubStep struct {
	status int
	body   string
	err    error
}

type stubAdapter struct {
	steps []stubStep
	calls int
}

func (*stubAdapter) Kind() string { return "stub" }

func (a *stubAdapter) Do(context.Context, core.TransportRequest) (core.TransportResponse, error) {
	a.calls++
	if len(a.steps) == 0 {
		return core.TransportResponse{StatusCode: http.StatusOK}, nil
	}
	step := a.steps[0]
	if len(a.steps) > 1 {
		a.steps = a.steps[1:]
	}
	if step.err != nil {
		return core.TransportResponse{}, step.err
	}
	return core.TransportResponse{StatusCode: step.status, Body: []byte(step.body)}, nil
}

type recordingLogger struct {
	warnings []string
}

func (*recordingLogger) Trace(string, ...any) {}
func (*recordingLogger) Debug(string, ...any) {}
func (*recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.warnings = append(l.warnings, msg)
}
func (*recordingLogger) Error(string, ...any) {}
func (*recordingLogger) Fatal(string, ...any) {}
func (l *recordingLogger) WithContext(context.Context) core.Logger {
	return l
}

func newTestRetrier(adapter core.TransportAdapter, attempts int, delay time.Duration, sleeps *[]time.Duration) *Retrier {
	retrier := NewRetrier(adapter, core.RetryConfig{MaxAttempts: attempts, BaseDelay: delay}, nil)
	retrier.Sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return retrier
}

func TestRetrier_StopsAfterMaxAttemptsWithLinearBackoff(t *testing.T) {
	adapter := &stubAdapter{steps: []stubStep{{status: http.StatusServiceUnavailable, body: "busy"}}}
	var sleeps []time.Duration
	retrier := newTestRetrier(adapter, 3, time.Second, &sleeps)

	_, err := retrier.Do(context.Background(), core.TransportRequest{
		Method:   http.MethodPost,
		URL:      "https://api.example.test/v1/file_uploads",
		Metadata: map[string]any{"operation": "notion.file_uploads.create"},
	})
	if adapter.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", adapter.calls)
	}
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Fatalf("expected waits of 1s then 2s, got %v", sleeps)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected exhausted error, got %T %v", err, err)
	}
	if exhausted.StatusCode != http.StatusServiceUnavailable || string(exhausted.Body) != "busy" {
		t.Fatalf("expected last status and body, got %d %q", exhausted.StatusCode, exhausted.Body)
	}
	if exhausted.Attempts != 3 || exhausted.Permanent {
		t.Fatalf("unexpected exhausted state %#v", exhausted)
	}
	if exhausted.Operation != "notion.file_uploads.create" {
		t.Fatalf("expected operation on error, got %q", exhausted.Operation)
	}
}

func TestRetrier_ReturnsOnFirstSuccess(t *testing.T) {
	adapter := &stubAdapter{steps: []stubStep{
		{status: http.StatusTooManyRequests},
		{status: http.StatusConflict},
		{status: http.StatusCreated, body: `{"id":"f-1"}`},
	}}
	var sleeps []time.Duration
	retrier := newTestRetrier(adapter, 5, 10*time.Millisecond, &sleeps)

	res, err := retrier.Do(context.Background(), core.TransportRequest{URL: "https://api.example.test"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusCreated || adapter.calls != 3 {
		t.Fatalf("expected success on third attempt, got status %d after %d calls", res.StatusCode, adapter.calls)
	}
	for i := 1; i < len(sleeps); i++ {
		if sleeps[i] < sleeps[i-1] {
			t.Fatalf("expected non-decreasing waits, got %v", sleeps)
		}
	}
}

func TestRetrier_FailsFastOnClientError(t *testing.T) {
	adapter := &stubAdapter{steps: []stubStep{{status: http.StatusBadRequest, body: `{"code":"validation_error"}`}}}
	var sleeps []time.Duration
	retrier := newTestRetrier(adapter, 3, time.Second, &sleeps)

	res, err := retrier.Do(context.Background(), core.TransportRequest{URL: "https://api.example.test"})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || !exhausted.Permanent {
		t.Fatalf("expected permanent exhausted error, got %v", err)
	}
	if adapter.calls != 1 || len(sleeps) != 0 {
		t.Fatalf("expected a single attempt without waiting, got %d calls %v", adapter.calls, sleeps)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected failing response to be returned, got %d", res.StatusCode)
	}
}

func TestRetrier_RetriesExternalAdapterErrors(t *testing.T) {
	network := transportWrapError(errors.New("connection reset"), goerrors.CategoryExternal, "transport: execute http request", http.StatusBadGateway, nil)
	adapter := &stubAdapter{steps: []stubStep{{err: network}, {status: http.StatusOK}}}
	var sleeps []time.Duration
	retrier := newTestRetrier(adapter, 3, time.Second, &sleeps)

	if _, err := retrier.Do(context.Background(), core.TransportRequest{URL: "https://api.example.test"}); err != nil {
		t.Fatalf("expected recovery after network error, got %v", err)
	}
	if adapter.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", adapter.calls)
	}
}

func TestRetrier_DoesNotRetryBadInputErrors(t *testing.T) {
	bad := transportError("transport: request url is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	adapter := &stubAdapter{steps: []stubStep{{err: bad}}}
	var sleeps []time.Duration
	retrier := newTestRetrier(adapter, 3, time.Second, &sleeps)

	_, err := retrier.Do(context.Background(), core.TransportRequest{})
	if err == nil || adapter.calls != 1 {
		t.Fatalf("expected single failed attempt, got %d calls err=%v", adapter.calls, err)
	}
}

func TestRetrier_CancelledDuringBackoff(t *testing.T) {
	adapter := &stubAdapter{steps: []stubStep{{status: http.StatusBadGateway}}}
	retrier := NewRetrier(adapter, core.RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	retrier.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	_, err := retrier.Do(ctx, core.TransportRequest{URL: "https://api.example.test"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("expected no attempt after cancellation, got %d", adapter.calls)
	}
}

func TestRetrier_LogsEachFailedAttempt(t *testing.T) {
	adapter := &stubAdapter{steps: []stubStep{{status: http.StatusInternalServerError}, {status: http.StatusOK}}}
	logger := &recordingLogger{}
	retrier := NewRetrier(adapter, core.RetryConfig{MaxAttempts: 3}, logger)
	retrier.Sleep = func(context.Context, time.Duration) error { return nil }

	if _, err := retrier.Do(context.Background(), core.TransportRequest{URL: "https://api.example.test"}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if len(logger.warnings) != 1 || logger.warnings[0] != "transport attempt failed" {
		t.Fatalf("expected one warning, got %v", logger.warnings)
	}
}
