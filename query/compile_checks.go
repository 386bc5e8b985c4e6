package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/pipeline"
)

var (
	_ gocmd.Querier[ListPendingMessage, pipeline.Pending]            = (*ListPendingQuery)(nil)
	_ gocmd.Querier[GetRecordReferenceMessage, core.RecordReference] = (*GetRecordReferenceQuery)(nil)
)
