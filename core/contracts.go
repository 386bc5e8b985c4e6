package core

import (
	"context"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// RecordReference identifies one store record through the pipeline.
// RecordID addresses update calls; ExternalKey and StableUUID feed the payload.
type RecordReference struct {
	RecordID    string
	ExternalKey string
	StableUUID  string
}

func (r RecordReference) Validate() error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(r.RecordID) == "" {
		missing = append(missing, "record_id")
	}
	if strings.TrimSpace(r.ExternalKey) == "" {
		missing = append(missing, "external_key")
	}
	if strings.TrimSpace(r.StableUUID) == "" {
		missing = append(missing, "stable_uuid")
	}
	if len(missing) == 0 {
		return nil
	}
	return NewDataError(r.RecordID, "core: record reference missing "+strings.Join(missing, ", "))
}

// UploadSession is the transient state of one orchestrator run.
type UploadSession struct {
	ID            string
	RecordID      string
	Filename      string
	ContentType   string
	UploadSlotID  string
	ArtifactBytes []byte
	BoundFileID   string
	StartedAt     time.Time
}

type FileUpload struct {
	ID          string
	Status      string
	Filename    string
	ContentType string
}

type ArtifactEncoder interface {
	Encode(payload string) ([]byte, error)
}

type TransportRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Query    map[string]string
	Body     []byte
	Metadata map[string]any
	Timeout  time.Duration

	MaxResponseBodyBytes int64
}

// Operation names the remote call for diagnostics.
func (r TransportRequest) Operation() string {
	if r.Metadata == nil {
		return ""
	}
	value, _ := r.Metadata["operation"].(string)
	return strings.TrimSpace(value)
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type InboundRequest struct {
	Method   string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Body       []byte
	Metadata   map[string]any
}

type InboundHandler interface {
	Handle(ctx context.Context, req InboundRequest) (InboundResult, error)
}

// HeaderValue looks up key in a flattened header map ignoring case.
func HeaderValue(headers map[string]string, key string) string {
	key = strings.TrimSpace(key)
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
