package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-qrsync/core"
)

const KindRetry = "retry"

const (
	defaultRetryMaxAttempts = 3
	defaultRetryBaseDelay   = time.Second
	maxErrorBodyPreview     = 512
)

// Retrier re-issues a request on retryable failures, waiting BaseDelay*attempt
// between attempts.
type Retrier struct {
	Adapter     core.TransportAdapter
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      core.Logger
	Sleep       func(ctx context.Context, delay time.Duration) error
}

func NewRetrier(adapter core.TransportAdapter, cfg core.RetryConfig, logger core.Logger) *Retrier {
	return &Retrier{
		Adapter:     adapter,
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Logger:      glog.Ensure(logger),
		Sleep:       waitWithContext,
	}
}

func (*Retrier) Kind() string {
	return KindRetry
}

func (r *Retrier) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if r == nil || r.Adapter == nil {
		return core.TransportResponse{}, misconfiguredError(KindRetry, "transport: retrier requires an adapter")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultRetryMaxAttempts
	}
	baseDelay := r.BaseDelay
	if baseDelay < 0 {
		baseDelay = 0
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = waitWithContext
	}

	exhausted := &ExhaustedError{
		Operation: req.Operation(),
		Method:    strings.ToUpper(strings.TrimSpace(req.Method)),
		URL:       strings.TrimSpace(req.URL),
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		exhausted.Attempts = attempt
		res, err := r.Adapter.Do(ctx, req)
		if err == nil && isSuccessStatus(res.StatusCode) {
			return res, nil
		}

		retryable := false
		exhausted.Err = err
		if err != nil {
			exhausted.StatusCode = 0
			exhausted.Body = nil
			retryable = ctx.Err() == nil && isRetryableError(err)
		} else {
			exhausted.StatusCode = res.StatusCode
			exhausted.Body = res.Body
			retryable = isRetryableStatus(res.StatusCode)
		}
		r.logAttempt(ctx, exhausted, maxAttempts, retryable)

		if !retryable {
			exhausted.Permanent = true
			return res, exhausted
		}
		if attempt == maxAttempts {
			break
		}
		if waitErr := sleep(ctx, baseDelay*time.Duration(attempt)); waitErr != nil {
			exhausted.Err = waitErr
			return core.TransportResponse{}, exhausted
		}
	}
	return core.TransportResponse{}, exhausted
}

func (r *Retrier) logAttempt(ctx context.Context, state *ExhaustedError, maxAttempts int, retryable bool) {
	fields := map[string]any{
		"operation":    state.Operation,
		"method":       state.Method,
		"url":          state.URL,
		"attempt":      state.Attempts,
		"max_attempts": maxAttempts,
		"retryable":    retryable,
	}
	if state.StatusCode > 0 {
		fields["status_code"] = state.StatusCode
	}
	if state.Err != nil {
		fields["error"] = state.Err.Error()
	}
	core.LogWarn(ctx, r.Logger, "transport attempt failed", fields)
}

// ExhaustedError reports a request that never produced a 2xx response.
type ExhaustedError struct {
	Operation  string
	Method     string
	URL        string
	Attempts   int
	StatusCode int
	Body       []byte
	Permanent  bool
	Err        error
}

func (e *ExhaustedError) Error() string {
	if e == nil {
		return ""
	}
	name := e.Operation
	if name == "" {
		name = strings.TrimSpace(e.Method + " " + e.URL)
	}
	msg := fmt.Sprintf("transport: %s failed after %d attempt(s)", name, e.Attempts)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
		if preview := bodyPreview(e.Body); preview != "" {
			msg += ": " + preview
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExhaustedError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category := goerrors.CategoryExternal
	code := http.StatusBadGateway
	if e.StatusCode == http.StatusTooManyRequests {
		category = goerrors.CategoryRateLimit
		code = http.StatusTooManyRequests
	}
	metadata := map[string]any{
		"operation": e.Operation,
		"method":    e.Method,
		"url":       e.URL,
		"attempts":  e.Attempts,
		"permanent": e.Permanent,
	}
	if e.StatusCode > 0 {
		metadata["status_code"] = e.StatusCode
	}
	if preview := bodyPreview(e.Body); preview != "" {
		metadata["response_body"] = preview
	}
	var err *goerrors.Error
	if e.Err != nil {
		err = goerrors.Wrap(e.Err, category, e.Error())
	} else {
		err = goerrors.New(e.Error(), category)
	}
	return err.
		WithCode(code).
		WithTextCode(core.TextCodeFor(category)).
		WithMetadata(metadata)
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryExternal, goerrors.CategoryRateLimit:
			return true
		default:
			return false
		}
	}
	return true
}

func bodyPreview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyPreview {
		return text[:maxErrorBodyPreview] + "..."
	}
	return text
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ core.TransportAdapter = (*Retrier)(nil)
