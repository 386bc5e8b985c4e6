package webhooks

import (
	"errors"
	"io"
	"net/http"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-qrsync/core"
)

const defaultMaxBodyBytes int64 = 1 << 20 // 1 MiB

// HTTPHandler serves an InboundHandler over net/http. Error detail is logged,
// never written to the response.
type HTTPHandler struct {
	Handler      core.InboundHandler
	MaxBodyBytes int64
	Logger       core.Logger
}

func NewHTTPHandler(handler core.InboundHandler, maxBodyBytes int64, logger core.Logger) *HTTPHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPHandler{Handler: handler, MaxBodyBytes: maxBodyBytes, Logger: glog.Ensure(logger)}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeStatus(w, http.StatusMethodNotAllowed, nil)
		return
	}
	if h == nil || h.Handler == nil {
		writeStatus(w, http.StatusInternalServerError, nil)
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		status := http.StatusBadRequest
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
		}
		core.LogWarn(ctx, h.Logger, "webhook body rejected", map[string]any{"error": err.Error(), "status_code": status})
		writeStatus(w, status, nil)
		return
	}

	result, err := h.Handler.Handle(ctx, core.InboundRequest{
		Method:   r.Method,
		Headers:  flattenRequestHeaders(r.Header),
		Body:     body,
		Metadata: map[string]any{"remote_addr": r.RemoteAddr, "path": r.URL.Path},
	})
	status := result.StatusCode
	if err != nil {
		mapped := core.MapError(err)
		if status == 0 {
			status = mapped.Code
		}
		fields := map[string]any{"status_code": status, "error": mapped.Error(), "text_code": mapped.TextCode}
		for key, value := range result.Metadata {
			fields[key] = value
		}
		if status >= http.StatusInternalServerError {
			core.LogError(ctx, h.Logger, "webhook processing failed", fields)
		} else {
			core.LogWarn(ctx, h.Logger, "webhook rejected", fields)
		}
	}
	if status == 0 {
		status = http.StatusOK
	}
	if err == nil && result.Metadata != nil && result.Metadata["handshake"] == true {
		writeStatus(w, status, result.Body)
		return
	}
	writeStatus(w, status, nil)
}

func writeStatus(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body == nil {
		body = []byte(http.StatusText(status))
	}
	_, _ = w.Write(body)
}

func flattenRequestHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}
