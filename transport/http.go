package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

const (
	KindHTTP = "http"
	KindJSON = "json"
)

const (
	defaultHTTPTimeout             = 30 * time.Second
	defaultResponseBodyLimit int64 = 10 << 20
	defaultUserAgent               = "go-qrsync"
	requestIDHeader                = "X-Request-Id"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPAdapter executes transport requests over net/http. DefaultMethod and
// DefaultHeaders fill in what a request leaves unset; request headers win.
type HTTPAdapter struct {
	Client               HTTPDoer
	DefaultMethod        string
	DefaultHeaders       map[string]string
	UserAgent            string
	MaxResponseBodyBytes int64

	kind string
}

func NewHTTPAdapter(client HTTPDoer) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPAdapter{
		Client:               client,
		DefaultMethod:        http.MethodGet,
		DefaultHeaders:       map[string]string{},
		UserAgent:            defaultUserAgent,
		MaxResponseBodyBytes: defaultResponseBodyLimit,
		kind:                 KindHTTP,
	}
}

// NewJSONAdapter speaks JSON by default: POST with JSON content negotiation.
// Multipart uploads override Content-Type per request.
func NewJSONAdapter(client HTTPDoer) *HTTPAdapter {
	adapter := NewHTTPAdapter(client)
	adapter.kind = KindJSON
	adapter.DefaultMethod = http.MethodPost
	adapter.DefaultHeaders = map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	return adapter
}

func (a *HTTPAdapter) Kind() string {
	if a == nil || a.kind == "" {
		return KindHTTP
	}
	return a.kind
}

func (a *HTTPAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, misconfiguredError(a.Kind(), "transport: http adapter requires a client")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	operation := req.Operation()
	method := a.method(req.Method)
	target, err := resolveURL(req.URL, req.Query)
	if err != nil {
		return core.TransportResponse{}, err
	}
	fields := map[string]any{
		"adapter":   a.Kind(),
		"operation": operation,
		"method":    method,
		"url":       target,
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(req.Body))
	if err != nil {
		return core.TransportResponse{}, transportWrapError(err, goerrors.CategoryBadInput, "transport: build http request", http.StatusBadRequest, fields)
	}
	httpReq.Header = a.header(req.Headers)

	startedAt := time.Now()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(err, goerrors.CategoryExternal, "transport: execute http request", http.StatusBadGateway, fields)
	}
	defer httpRes.Body.Close()

	limit := req.MaxResponseBodyBytes
	if limit <= 0 {
		limit = a.MaxResponseBodyBytes
	}
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	fields["status_code"] = httpRes.StatusCode
	body, err := readBounded(httpRes.Body, limit, fields)
	if err != nil {
		return core.TransportResponse{}, err
	}

	metadata := map[string]any{
		"kind":        a.Kind(),
		"operation":   operation,
		"method":      method,
		"url":         target,
		"duration_ms": time.Since(startedAt).Milliseconds(),
	}
	if requestID := httpRes.Header.Get(requestIDHeader); requestID != "" {
		metadata["request_id"] = requestID
	}
	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Metadata:   metadata,
	}, nil
}

func (a *HTTPAdapter) method(requested string) string {
	method := strings.ToUpper(strings.TrimSpace(requested))
	if method == "" {
		method = strings.ToUpper(strings.TrimSpace(a.DefaultMethod))
	}
	if method == "" {
		method = http.MethodGet
	}
	return method
}

// header merges defaults and request headers through http.Header so keys
// differing only in case collapse onto one canonical entry.
func (a *HTTPAdapter) header(requested map[string]string) http.Header {
	header := make(http.Header, len(a.DefaultHeaders)+len(requested)+1)
	if agent := strings.TrimSpace(a.UserAgent); agent != "" {
		header.Set("User-Agent", agent)
	}
	for _, source := range []map[string]string{a.DefaultHeaders, requested} {
		for key, value := range source {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			header.Set(key, strings.TrimSpace(value))
		}
	}
	return header
}

func resolveURL(raw string, query map[string]string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", transportError("transport: request url is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", transportWrapError(err, goerrors.CategoryBadInput, "transport: invalid request url", http.StatusBadRequest, map[string]any{"url": raw})
	}
	if len(query) > 0 {
		values := parsed.Query()
		for key, value := range query {
			if key = strings.TrimSpace(key); key != "" {
				values.Set(key, strings.TrimSpace(value))
			}
		}
		parsed.RawQuery = values.Encode()
	}
	return parsed.String(), nil
}

func readBounded(body io.Reader, limit int64, fields map[string]any) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, transportWrapError(err, goerrors.CategoryExternal, "transport: read response body", http.StatusBadGateway, fields)
	}
	if int64(len(data)) > limit {
		fields["response_limit_bytes"] = limit
		return nil, transportError(
			fmt.Sprintf("transport: response body exceeds %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			fields,
		)
	}
	return data, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.TransportAdapter = (*HTTPAdapter)(nil)
