package pipeline

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-qrsync/core"
	"golang.org/x/sync/errgroup"
)

const defaultBatchWorkers = 3

type Outcome struct {
	Reference core.RecordReference
	Result    Result
	Err       error
}

type Report struct {
	Collected int
	Succeeded int
	Failed    int
	Skipped   []*core.ProcessingError
	Outcomes  []Outcome
	Duration  time.Duration
}

// Failures returns the outcomes that ended in an error.
func (r Report) Failures() []Outcome {
	var out []Outcome
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			out = append(out, outcome)
		}
	}
	return out
}

type Batch struct {
	Collector *Collector
	Processor RecordProcessor
	Workers   int
	Logger    core.Logger
	Now       func() time.Time
}

func NewBatch(collector *Collector, processor RecordProcessor, workers int, logger core.Logger) *Batch {
	return &Batch{
		Collector: collector,
		Processor: processor,
		Workers:   workers,
		Logger:    glog.Ensure(logger),
		Now:       time.Now,
	}
}

// Run collects pending records and processes them with at most Workers in
// flight. Per-record failures land in the report; only a failed collection
// is returned as an error.
func (b *Batch) Run(ctx context.Context) (Report, error) {
	if b == nil || b.Collector == nil || b.Processor == nil {
		return Report{}, pipelineError("pipeline: batch requires a collector and a processor", nil)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	startedAt := now()

	pending, err := b.Collector.CollectPending(ctx)
	if err != nil {
		core.LogError(ctx, b.Logger, "pending collection failed", map[string]any{"error": core.MapError(err).Error()})
		return Report{}, err
	}

	workers := b.Workers
	if workers < 1 {
		workers = defaultBatchWorkers
	}
	outcomes := make([]Outcome, len(pending.References))
	var group errgroup.Group
	group.SetLimit(workers)
	for index, ref := range pending.References {
		group.Go(func() error {
			result, err := b.Processor.Process(ctx, ref)
			outcomes[index] = Outcome{Reference: ref, Result: result, Err: err}
			return nil
		})
	}
	_ = group.Wait()

	report := Report{
		Collected: len(pending.References),
		Skipped:   pending.Skipped,
		Outcomes:  outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			report.Failed++
			continue
		}
		report.Succeeded++
	}
	report.Duration = now().Sub(startedAt)

	core.LogInfo(ctx, b.Logger, "batch finished", map[string]any{
		"collected":   report.Collected,
		"succeeded":   report.Succeeded,
		"failed":      report.Failed,
		"skipped":     len(report.Skipped),
		"duration_ms": report.Duration.Milliseconds(),
	})
	return report, nil
}
