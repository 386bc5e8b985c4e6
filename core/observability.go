package core

import (
	"context"
	"maps"
	"slices"

	glog "github.com/goliatone/go-logger/glog"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ResolveLogger returns the provider's named logger when a provider is set,
// then the given logger, then a no-op logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) Logger {
	resolvedProvider, resolved := glog.Resolve(name, provider, logger)
	if resolvedProvider != nil {
		if named := resolvedProvider.GetLogger(name); named != nil {
			return named
		}
	}
	return glog.Ensure(resolved)
}

// RecordFields are the log fields identifying a record in every pipeline
// message. Empty values are omitted.
func RecordFields(ref RecordReference) map[string]any {
	fields := make(map[string]any, 4)
	putField(fields, "record_id", ref.RecordID)
	putField(fields, "external_key", ref.ExternalKey)
	return fields
}

// SessionFields extends RecordFields with what an upload session has
// produced so far.
func SessionFields(ref RecordReference, session UploadSession) map[string]any {
	fields := RecordFields(ref)
	putField(fields, "record_id", session.RecordID)
	putField(fields, "session_id", session.ID)
	putField(fields, "upload_slot_id", session.UploadSlotID)
	putField(fields, "file_id", session.BoundFileID)
	if n := len(session.ArtifactBytes); n > 0 {
		fields["artifact_bytes"] = n
	}
	return fields
}

func putField(fields map[string]any, key string, value string) {
	if value != "" {
		fields[key] = value
	}
}

func LogDebug(ctx context.Context, logger Logger, message string, fields map[string]any) {
	Log(ctx, logger, LevelDebug, message, fields)
}

func LogInfo(ctx context.Context, logger Logger, message string, fields map[string]any) {
	Log(ctx, logger, LevelInfo, message, fields)
}

func LogWarn(ctx context.Context, logger Logger, message string, fields map[string]any) {
	Log(ctx, logger, LevelWarn, message, fields)
}

func LogError(ctx context.Context, logger Logger, message string, fields map[string]any) {
	Log(ctx, logger, LevelError, message, fields)
}

// Log hands fields to a FieldsLogger as a map, otherwise as sorted
// key/value arguments.
func Log(ctx context.Context, logger Logger, level Level, message string, fields map[string]any) {
	if logger == nil {
		return
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	var args []any
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		if len(fields) > 0 {
			logger = fieldsLogger.WithFields(maps.Clone(fields))
		}
	} else {
		for _, key := range slices.Sorted(maps.Keys(fields)) {
			args = append(args, key, fields[key])
		}
	}

	var emit func(string, ...any)
	switch level {
	case LevelDebug:
		emit = logger.Debug
	case LevelWarn:
		emit = logger.Warn
	case LevelError:
		emit = logger.Error
	default:
		emit = logger.Info
	}
	emit(message, args...)
}
