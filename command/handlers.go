package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-qrsync/pipeline"
)

type BatchRunner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

type ProcessRecordCommand struct {
	processor pipeline.RecordProcessor
}

func NewProcessRecordCommand(processor pipeline.RecordProcessor) *ProcessRecordCommand {
	return &ProcessRecordCommand{processor: processor}
}

func (c *ProcessRecordCommand) Execute(ctx context.Context, msg ProcessRecordMessage) error {
	if c == nil || c.processor == nil {
		return commandDependencyError(TypeProcessRecord, "record processor")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.processor.Process(ctx, msg.Reference)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SweepPendingCommand struct {
	runner   BatchRunner
	onReport func(context.Context, pipeline.Report)
}

// NewSweepPendingCommand runs the batch; onReport, if set, receives every
// completed report.
func NewSweepPendingCommand(runner BatchRunner, onReport func(context.Context, pipeline.Report)) *SweepPendingCommand {
	return &SweepPendingCommand{runner: runner, onReport: onReport}
}

func (c *SweepPendingCommand) Execute(ctx context.Context, _ SweepPendingMessage) error {
	if c == nil || c.runner == nil {
		return commandDependencyError(TypeSweepPending, "batch runner")
	}
	report, err := c.runner.Run(ctx)
	if err != nil {
		return err
	}
	if c.onReport != nil {
		c.onReport(ctx, report)
	}
	storeResult(ctx, report)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
