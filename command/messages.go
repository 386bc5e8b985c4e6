package command

import (
	"strings"

	"github.com/goliatone/go-qrsync/core"
)

const (
	TypeProcessRecord = "qrsync.command.record.process"
	TypeSweepPending  = "qrsync.command.sweep"
)

type ProcessRecordMessage struct {
	Reference core.RecordReference
}

func (ProcessRecordMessage) Type() string { return TypeProcessRecord }

func (m ProcessRecordMessage) Validate() error {
	if strings.TrimSpace(m.Reference.RecordID) == "" {
		return commandValidationError(TypeProcessRecord, "reference.record_id", "record id is required")
	}
	if strings.TrimSpace(m.Reference.ExternalKey) == "" {
		return commandValidationError(TypeProcessRecord, "reference.external_key", "external key is required")
	}
	if strings.TrimSpace(m.Reference.StableUUID) == "" {
		return commandValidationError(TypeProcessRecord, "reference.stable_uuid", "stable uuid is required")
	}
	return nil
}

// SweepPendingMessage asks for one pass over every record without an artifact.
type SweepPendingMessage struct{}

func (SweepPendingMessage) Type() string { return TypeSweepPending }

func (SweepPendingMessage) Validate() error { return nil }
