package webhooks

import (
	"context"
	"net/http"
	"slices"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/notion"
	"github.com/goliatone/go-qrsync/pipeline"
)

type RecordLookup interface {
	RetrieveRecord(ctx context.Context, recordID string) (notion.Page, error)
}

type ReferenceMapper interface {
	Reference(page notion.Page) (core.RecordReference, error)
}

// Ingress turns one inbound delivery into at most one pipeline run.
// Repeat deliveries are processed again unless Burst is set.
type Ingress struct {
	Verifier   Verifier
	Records    RecordLookup
	Schema     ReferenceMapper
	Processor  pipeline.RecordProcessor
	Burst      BurstController
	EventTypes []string
	ParentID   string
	Logger     core.Logger
}

func NewIngress(
	cfg core.WebhookConfig,
	records RecordLookup,
	schema ReferenceMapper,
	processor pipeline.RecordProcessor,
	logger core.Logger,
) *Ingress {
	eventTypes := cfg.EventTypes
	if len(eventTypes) == 0 {
		eventTypes = []string{core.DefaultRecordEventType}
	}
	ingress := &Ingress{
		Verifier:   NewNotionVerifier(cfg.Secret, cfg.SignatureHeader),
		Records:    records,
		Schema:     schema,
		Processor:  processor,
		EventTypes: append([]string(nil), eventTypes...),
		ParentID:   strings.TrimSpace(cfg.ParentID),
		Logger:     glog.Ensure(logger),
	}
	if cfg.CoalesceWindow > 0 {
		ingress.Burst = NewCoalescer(BurstOptions{Window: cfg.CoalesceWindow})
	}
	return ingress
}

func (i *Ingress) Handle(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if i == nil {
		return failed(http.StatusInternalServerError, nil), ingressInternalError("webhooks: ingress is nil")
	}

	if token := handshakeToken(req.Body); token != "" {
		core.LogInfo(ctx, i.Logger, "webhook subscription handshake received", nil)
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Body:       []byte(token),
			Metadata:   map[string]any{"handshake": true},
		}, nil
	}

	if i.Verifier == nil {
		return failed(http.StatusInternalServerError, nil), ingressInternalError("webhooks: ingress requires a verifier")
	}
	if err := i.Verifier.Verify(ctx, req); err != nil {
		core.LogWarn(ctx, i.Logger, "webhook signature rejected", map[string]any{"error": err.Error()})
		return failed(http.StatusUnauthorized, map[string]any{"rejected": true}), err
	}

	event, err := parseEvent(req.Body)
	if err != nil {
		return failed(http.StatusBadRequest, nil), err
	}
	fields := map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
		"entity_id":  event.Entity.ID,
	}

	if !i.acceptsType(event.Type) {
		return ignored("event_type", fields), nil
	}
	if i.ParentID != "" {
		if parentID := event.ParentID(); parentID != "" && !sameID(parentID, i.ParentID) {
			fields["parent_id"] = parentID
			return ignored("parent_id", fields), nil
		}
	}
	if event.Entity.ID == "" {
		return failed(http.StatusBadRequest, fields), malformedEventError(nil, "webhooks: event entity id is required", fields)
	}

	key := deliveryKey(event.Type, event.Entity.ID)
	if i.Burst != nil {
		decision, burstErr := i.Burst.Allow(ctx, key)
		if burstErr != nil {
			return failed(http.StatusInternalServerError, fields), burstErr
		}
		if !decision.Allow {
			for key, value := range decision.Metadata {
				fields[key] = value
			}
			return ignored("coalesced", fields), nil
		}
	}

	ref, err := i.resolve(ctx, event.Entity.ID)
	if err != nil {
		fields["error"] = core.MapError(err).Error()
		core.LogError(ctx, i.Logger, "webhook record resolution failed", fields)
		i.forget(ctx, key)
		return failed(http.StatusInternalServerError, fields), err
	}

	result, err := i.Processor.Process(ctx, ref)
	if err != nil {
		i.forget(ctx, key)
		return failed(http.StatusInternalServerError, fields), err
	}
	fields["file_id"] = result.FileID
	fields["session_id"] = result.SessionID
	return core.InboundResult{Accepted: true, StatusCode: http.StatusOK, Metadata: fields}, nil
}

func (i *Ingress) forget(ctx context.Context, key string) {
	if i.Burst != nil {
		i.Burst.Forget(ctx, key)
	}
}

func (i *Ingress) resolve(ctx context.Context, recordID string) (core.RecordReference, error) {
	ref := core.RecordReference{RecordID: recordID}
	if i.Records == nil || i.Schema == nil || i.Processor == nil {
		return ref, ingressInternalError("webhooks: ingress requires records, schema and processor")
	}
	page, err := i.Records.RetrieveRecord(ctx, recordID)
	if err != nil {
		return ref, core.NewProcessingError(core.KindResolutionFailed, ref, err)
	}
	resolved, err := i.Schema.Reference(page)
	if err != nil {
		return resolved, err
	}
	return resolved, nil
}

func (i *Ingress) acceptsType(eventType string) bool {
	return slices.ContainsFunc(i.EventTypes, func(candidate string) bool {
		return strings.EqualFold(strings.TrimSpace(candidate), eventType)
	})
}

func ignored(reason string, fields map[string]any) core.InboundResult {
	metadata := cloneMetadata(fields)
	metadata["ignored"] = reason
	return core.InboundResult{Accepted: true, StatusCode: http.StatusOK, Metadata: metadata}
}

func failed(status int, fields map[string]any) core.InboundResult {
	return core.InboundResult{StatusCode: status, Metadata: cloneMetadata(fields)}
}

func cloneMetadata(input map[string]any) map[string]any {
	out := make(map[string]any, len(input)+2)
	for key, value := range input {
		out[key] = value
	}
	return out
}

var _ core.InboundHandler = (*Ingress)(nil)
