package pipeline

import (
	"context"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/encoder"
	"github.com/google/uuid"
)

// UploadStore is the remote side of one record run.
type UploadStore interface {
	CreateFileUpload(ctx context.Context, filename string, contentType string) (core.FileUpload, error)
	SendFileUpload(ctx context.Context, uploadID string, filename string, contentType string, data []byte) (core.FileUpload, error)
	AttachArtifact(ctx context.Context, recordID string, fileID string, filename string) error
}

type RecordProcessor interface {
	Process(ctx context.Context, ref core.RecordReference) (Result, error)
}

type Result struct {
	SessionID    string
	RecordID     string
	ExternalKey  string
	UploadSlotID string
	FileID       string
	Duration     time.Duration
}

// Orchestrator binds one artifact per call. Completed remote steps are never
// rolled back; a slot or file left behind by a later failure is logged.
type Orchestrator struct {
	Store       UploadStore
	Encoder     core.ArtifactEncoder
	ContentType string
	Logger      core.Logger
	Now         func() time.Time
	NewID       func() string
}

func NewOrchestrator(store UploadStore, artifactEncoder core.ArtifactEncoder, logger core.Logger) *Orchestrator {
	if artifactEncoder == nil {
		artifactEncoder = encoder.NewQREncoder(encoder.DefaultSize)
	}
	return &Orchestrator{
		Store:       store,
		Encoder:     artifactEncoder,
		ContentType: core.DefaultArtifactMimeType,
		Logger:      glog.Ensure(logger),
		Now:         time.Now,
		NewID:       uuid.NewString,
	}
}

func (o *Orchestrator) Process(ctx context.Context, ref core.RecordReference) (Result, error) {
	if err := ref.Validate(); err != nil {
		return Result{RecordID: ref.RecordID}, err
	}
	if o == nil || o.Store == nil || o.Encoder == nil {
		return Result{RecordID: ref.RecordID}, pipelineError(
			"pipeline: orchestrator requires a store and an encoder",
			map[string]any{"record_id": ref.RecordID},
		)
	}
	now := o.now
	session := core.UploadSession{
		ID:          o.newID(),
		RecordID:    strings.TrimSpace(ref.RecordID),
		Filename:    encoder.Filename(ref),
		ContentType: o.contentType(),
		StartedAt:   now(),
	}
	result := func() Result {
		return Result{
			SessionID:    session.ID,
			RecordID:     session.RecordID,
			ExternalKey:  ref.ExternalKey,
			UploadSlotID: session.UploadSlotID,
			FileID:       session.BoundFileID,
			Duration:     now().Sub(session.StartedAt),
		}
	}

	slot, err := o.Store.CreateFileUpload(ctx, session.Filename, session.ContentType)
	if err != nil {
		return result(), o.fail(ctx, core.KindSlotReservationFailed, ref, session, err)
	}
	session.UploadSlotID = slot.ID

	payload, err := encoder.BuildPayload(ref)
	if err == nil {
		session.ArtifactBytes, err = o.Encoder.Encode(payload)
	}
	if err != nil {
		return result(), o.fail(ctx, core.KindEncodingFailed, ref, session, err)
	}

	sent, err := o.Store.SendFileUpload(ctx, session.UploadSlotID, session.Filename, session.ContentType, session.ArtifactBytes)
	if err != nil {
		return result(), o.fail(ctx, core.KindTransmissionFailed, ref, session, err)
	}
	session.BoundFileID = sent.ID
	if session.BoundFileID == "" {
		session.BoundFileID = session.UploadSlotID
	}

	if err := o.Store.AttachArtifact(ctx, session.RecordID, session.BoundFileID, session.Filename); err != nil {
		return result(), o.fail(ctx, core.KindBindingFailed, ref, session, err)
	}

	out := result()
	fields := core.SessionFields(ref, session)
	fields["duration_ms"] = out.Duration.Milliseconds()
	core.LogInfo(ctx, o.Logger, "artifact bound to record", fields)
	return out, nil
}

func (o *Orchestrator) fail(ctx context.Context, kind core.ErrorKind, ref core.RecordReference, session core.UploadSession, cause error) error {
	err := core.NewProcessingError(kind, ref, cause)
	err.UploadSlotID = session.UploadSlotID
	err.FileID = session.BoundFileID

	logFields := core.SessionFields(ref, session)
	logFields["kind"] = string(kind)
	logFields["error"] = core.MapError(err).Error()
	switch {
	case session.BoundFileID != "":
		logFields["orphaned_file_id"] = session.BoundFileID
	case session.UploadSlotID != "":
		logFields["orphaned_upload_slot_id"] = session.UploadSlotID
	}
	core.LogError(ctx, o.Logger, "record processing failed", logFields)
	return err
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

func (o *Orchestrator) contentType() string {
	if value := strings.TrimSpace(o.ContentType); value != "" {
		return value
	}
	return core.DefaultArtifactMimeType
}

var _ RecordProcessor = (*Orchestrator)(nil)
