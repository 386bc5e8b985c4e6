package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/notion"
	"github.com/goliatone/go-qrsync/pipeline"
)

type PendingCollector interface {
	CollectPending(ctx context.Context) (pipeline.Pending, error)
}

type RecordReader interface {
	RetrieveRecord(ctx context.Context, recordID string) (notion.Page, error)
}

type ReferenceMapper interface {
	Reference(page notion.Page) (core.RecordReference, error)
}

// ListPendingQuery reports which records a sweep would pick up without
// touching them.
type ListPendingQuery struct {
	collector PendingCollector
}

func NewListPendingQuery(collector PendingCollector) *ListPendingQuery {
	return &ListPendingQuery{collector: collector}
}

func (q *ListPendingQuery) Query(ctx context.Context, msg ListPendingMessage) (pipeline.Pending, error) {
	if q == nil || q.collector == nil {
		return pipeline.Pending{}, queryDependencyError(TypeListPending, "collector")
	}
	if err := msg.Validate(); err != nil {
		return pipeline.Pending{}, err
	}
	return q.collector.CollectPending(ctx)
}

type GetRecordReferenceQuery struct {
	reader RecordReader
	mapper ReferenceMapper
}

func NewGetRecordReferenceQuery(reader RecordReader, mapper ReferenceMapper) *GetRecordReferenceQuery {
	return &GetRecordReferenceQuery{reader: reader, mapper: mapper}
}

func (q *GetRecordReferenceQuery) Query(ctx context.Context, msg GetRecordReferenceMessage) (core.RecordReference, error) {
	if q == nil || q.reader == nil || q.mapper == nil {
		return core.RecordReference{}, queryDependencyError(TypeGetRecordReference, "reader", "mapper")
	}
	if err := msg.Validate(); err != nil {
		return core.RecordReference{}, err
	}
	recordID := strings.TrimSpace(msg.RecordID)
	page, err := q.reader.RetrieveRecord(ctx, recordID)
	if err != nil {
		return core.RecordReference{}, core.NewProcessingError(core.KindResolutionFailed, core.RecordReference{RecordID: recordID}, err)
	}
	return q.mapper.Reference(page)
}
