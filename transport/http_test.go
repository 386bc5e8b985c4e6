package transport

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-qrsync/core"
)

func TestJSONAdapter_AppliesDefaultsAndRequestOverrides(t *testing.T) {
	var gotMethod, gotContentType, gotAccept, gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("page")
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	adapter := NewJSONAdapter(server.Client())
	res, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:      server.URL,
		Headers:  map[string]string{"authorization": "Bearer secret", "content-type": "multipart/form-data; boundary=x"},
		Query:    map[string]string{"page": "2"},
		Body:     []byte("--x--"),
		Metadata: map[string]any{"operation": "test.op"},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected default POST, got %s", gotMethod)
	}
	if gotContentType != "multipart/form-data; boundary=x" {
		t.Fatalf("expected request content type to win, got %q", gotContentType)
	}
	if gotAccept != "application/json" {
		t.Fatalf("expected default accept header, got %q", gotAccept)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected authorization header, got %q", gotAuth)
	}
	if gotQuery != "2" {
		t.Fatalf("expected query parameter, got %q", gotQuery)
	}
	if res.Headers["X-Request-Id"] != "req-1" {
		t.Fatalf("expected flattened response headers, got %#v", res.Headers)
	}
	if res.Metadata["operation"] != "test.op" || res.Metadata["kind"] != KindJSON {
		t.Fatalf("unexpected response metadata %#v", res.Metadata)
	}
	if res.Metadata["request_id"] != "req-1" {
		t.Fatalf("expected request id metadata, got %#v", res.Metadata["request_id"])
	}
}

func TestHTTPAdapter_DefaultsToGetWithUserAgent(t *testing.T) {
	var gotMethod, gotAgent, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAgent = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.Client())
	adapter.UserAgent = "qrsync-test"
	res, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL + "/v1/pages/p-1"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotMethod != http.MethodGet || gotAgent != "qrsync-test" || gotContentType != "" {
		t.Fatalf("unexpected request: method=%s agent=%q content-type=%q", gotMethod, gotAgent, gotContentType)
	}
	if res.StatusCode != http.StatusNoContent || len(res.Body) != 0 {
		t.Fatalf("unexpected response %d %q", res.StatusCode, res.Body)
	}
	if adapter.Kind() != KindHTTP {
		t.Fatalf("expected %q kind, got %q", KindHTTP, adapter.Kind())
	}
}

func TestHTTPAdapter_RejectsMissingURL(t *testing.T) {
	adapter := NewJSONAdapter(nil)
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: "  "}); err == nil {
		t.Fatalf("expected missing url error")
	}
}

func TestEncodeMultipartFile_WritesSingleFilePart(t *testing.T) {
	body, contentType, err := EncodeMultipartFile("file", `INV-1".png`, "image/png", []byte("\x89PNG"))
	if err != nil {
		t.Fatalf("encode multipart: %v", err)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}
	if mediaType != "multipart/form-data" {
		t.Fatalf("unexpected media type %q", mediaType)
	}

	reader := multipart.NewReader(strings.NewReader(string(body)), params["boundary"])
	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("next part: %v", err)
	}
	if part.FormName() != "file" {
		t.Fatalf("expected form field file, got %q", part.FormName())
	}
	if part.FileName() != `INV-1".png` {
		t.Fatalf("unexpected filename %q", part.FileName())
	}
	if part.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected part content type %q", part.Header.Get("Content-Type"))
	}
	data, _ := io.ReadAll(part)
	if string(data) != "\x89PNG" {
		t.Fatalf("unexpected part data %q", data)
	}
	if _, err := reader.NextPart(); err != io.EOF {
		t.Fatalf("expected exactly one part, got %v", err)
	}
}

func TestEncodeMultipartFile_RequiresFilename(t *testing.T) {
	if _, _, err := EncodeMultipartFile("file", " ", "image/png", nil); err == nil {
		t.Fatalf("expected filename error")
	}
}
