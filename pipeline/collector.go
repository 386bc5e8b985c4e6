package pipeline

import (
	"context"
	"errors"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/notion"
)

type PendingQuerier interface {
	QueryPending(ctx context.Context) ([]notion.Page, error)
}

// Pending is the output of one collection pass. Skipped holds the records
// that could not be mapped to a reference.
type Pending struct {
	References []core.RecordReference
	Skipped    []*core.ProcessingError
}

type Collector struct {
	Store  PendingQuerier
	Schema notion.PropertySchema
	Logger core.Logger
}

func NewCollector(store PendingQuerier, schema notion.PropertySchema, logger core.Logger) *Collector {
	return &Collector{Store: store, Schema: schema, Logger: glog.Ensure(logger)}
}

// CollectPending queries once and maps every page. A page missing an
// identifier is skipped and reported, the rest are still returned.
func (c *Collector) CollectPending(ctx context.Context) (Pending, error) {
	if c == nil || c.Store == nil {
		return Pending{}, pipelineError("pipeline: collector requires a store", nil)
	}
	pages, err := c.Store.QueryPending(ctx)
	if err != nil {
		return Pending{}, err
	}

	pending := Pending{References: make([]core.RecordReference, 0, len(pages))}
	for _, page := range pages {
		if c.Schema.HasArtifact(page) {
			continue
		}
		ref, err := c.Schema.Reference(page)
		if err != nil {
			skipped := asDataError(page.ID, err)
			pending.Skipped = append(pending.Skipped, skipped)
			core.LogWarn(ctx, c.Logger, "record skipped", map[string]any{
				"record_id": page.ID,
				"error":     skipped.Error(),
			})
			continue
		}
		pending.References = append(pending.References, ref)
	}
	core.LogInfo(ctx, c.Logger, "pending records collected", map[string]any{
		"queried": len(pages),
		"pending": len(pending.References),
		"skipped": len(pending.Skipped),
	})
	return pending, nil
}

func asDataError(recordID string, err error) *core.ProcessingError {
	var processingErr *core.ProcessingError
	if errors.As(err, &processingErr) && processingErr != nil {
		return processingErr
	}
	return core.NewDataError(recordID, err.Error())
}
