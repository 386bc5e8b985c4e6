package query

import "strings"

const (
	TypeListPending        = "qrsync.query.pending.list"
	TypeGetRecordReference = "qrsync.query.record.reference"
)

type ListPendingMessage struct{}

func (ListPendingMessage) Type() string { return TypeListPending }

func (ListPendingMessage) Validate() error { return nil }

type GetRecordReferenceMessage struct {
	RecordID string
}

func (GetRecordReferenceMessage) Type() string { return TypeGetRecordReference }

func (m GetRecordReferenceMessage) Validate() error {
	if strings.TrimSpace(m.RecordID) == "" {
		return queryValidationError(TypeGetRecordReference, "record_id", "record id is required")
	}
	return nil
}
