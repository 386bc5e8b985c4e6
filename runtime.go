package qrsync

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-qrsync/adapters/gocommand"
	"github.com/goliatone/go-qrsync/command"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/encoder"
	"github.com/goliatone/go-qrsync/notion"
	"github.com/goliatone/go-qrsync/pipeline"
	"github.com/goliatone/go-qrsync/query"
	"github.com/goliatone/go-qrsync/ratelimit"
	"github.com/goliatone/go-qrsync/transport"
	"github.com/goliatone/go-qrsync/webhooks"
)

const defaultHTTPTimeout = 30 * time.Second

type Commands struct {
	ProcessRecord *command.ProcessRecordCommand
	SweepPending  *command.SweepPendingCommand
}

type Queries struct {
	ListPending        *query.ListPendingQuery
	GetRecordReference *query.GetRecordReferenceQuery
}

// Runtime owns one shared rate budget and every component that spends it.
type Runtime struct {
	config       Config
	logger       core.Logger
	budget       *ratelimit.Budget
	transport    core.TransportAdapter
	client       *notion.Client
	orchestrator *pipeline.Orchestrator
	collector    *pipeline.Collector
	batch        *pipeline.Batch
	ingress      *webhooks.Ingress
	handler      *webhooks.HTTPHandler
	commands     Commands
	queries      Queries
}

// New resolves configuration as defaults < provider < cfg and assembles the
// outbound chain: retry, then admission, then JSON over HTTP.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	builder := runtimeBuilder{runtimeConfig: cfg}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	logger := core.ResolveLogger("qrsync", builder.loggerProvider, builder.logger)

	resolved, err := core.ResolveConfig(context.Background(), builder.configProvider, builder.optionsResolver, builder.runtimeConfig)
	if err != nil {
		return nil, core.MapError(err)
	}

	httpClient := builder.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	var budget *ratelimit.Budget
	if builder.tokens != nil {
		budget = ratelimit.NewBudgetWithTokens(builder.tokens, resolved.RateLimit.MaxConcurrent)
	} else {
		budget = ratelimit.NewBudget(resolved.RateLimit)
	}

	chain := transport.NewRetrier(
		ratelimit.NewAdmissionAdapter(budget, transport.NewJSONAdapter(httpClient)),
		resolved.Retry,
		logger,
	)
	client := notion.NewClient(resolved.Notion, chain, logger)

	artifactEncoder := builder.encoder
	if artifactEncoder == nil {
		artifactEncoder = encoder.NewQREncoder(resolved.Artifact.Size)
	}
	orchestrator := pipeline.NewOrchestrator(client, artifactEncoder, logger)
	if resolved.Artifact.ContentType != "" {
		orchestrator.ContentType = resolved.Artifact.ContentType
	}

	collector := pipeline.NewCollector(client, client.Schema, logger)
	batch := pipeline.NewBatch(collector, orchestrator, resolved.Batch.Workers, logger)
	ingress := webhooks.NewIngress(resolved.Webhook, client, client.Schema, orchestrator, logger)
	handler := webhooks.NewHTTPHandler(ingress, resolved.Webhook.MaxBodyBytes, logger)

	rt := &Runtime{
		config:       resolved,
		logger:       logger,
		budget:       budget,
		transport:    chain,
		client:       client,
		orchestrator: orchestrator,
		collector:    collector,
		batch:        batch,
		ingress:      ingress,
		handler:      handler,
	}
	rt.commands = Commands{
		ProcessRecord: command.NewProcessRecordCommand(orchestrator),
		SweepPending: command.NewSweepPendingCommand(batch, func(ctx context.Context, report pipeline.Report) {
			rt.logReport(ctx, report)
			if builder.onReport != nil {
				builder.onReport(report)
			}
		}),
	}
	rt.queries = Queries{
		ListPending:        query.NewListPendingQuery(collector),
		GetRecordReference: query.NewGetRecordReferenceQuery(client, client.Schema),
	}
	return rt, nil
}

func (r *Runtime) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

func (r *Runtime) Logger() core.Logger {
	if r == nil {
		return nil
	}
	return r.logger
}

func (r *Runtime) Budget() *ratelimit.Budget {
	if r == nil {
		return nil
	}
	return r.budget
}

func (r *Runtime) Client() *notion.Client {
	if r == nil {
		return nil
	}
	return r.client
}

func (r *Runtime) Orchestrator() *pipeline.Orchestrator {
	if r == nil {
		return nil
	}
	return r.orchestrator
}

func (r *Runtime) Ingress() *webhooks.Ingress {
	if r == nil {
		return nil
	}
	return r.ingress
}

// Handler is the webhook endpoint.
func (r *Runtime) Handler() http.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}

func (r *Runtime) Commands() Commands {
	if r == nil {
		return Commands{}
	}
	return r.commands
}

func (r *Runtime) Queries() Queries {
	if r == nil {
		return Queries{}
	}
	return r.queries
}

// Pending lists the records a sweep would process, without processing them.
func (r *Runtime) Pending(ctx context.Context) (pipeline.Pending, error) {
	if r == nil || r.queries.ListPending == nil {
		return pipeline.Pending{}, runtimeError("qrsync: runtime is not initialized")
	}
	if err := r.config.ValidateForSweep(); err != nil {
		return pipeline.Pending{}, configError(err)
	}
	return r.queries.ListPending.Query(ctx, query.ListPendingMessage{})
}

// Sweep binds an artifact to every record that has none yet.
func (r *Runtime) Sweep(ctx context.Context) (Report, error) {
	if r == nil || r.batch == nil {
		return Report{}, runtimeError("qrsync: runtime is not initialized")
	}
	if err := r.config.ValidateForSweep(); err != nil {
		return Report{}, configError(err)
	}
	report, err := r.batch.Run(ctx)
	if err != nil {
		return report, err
	}
	r.logReport(ctx, report)
	return report, nil
}

// ProcessRecord resolves a record by id and binds its artifact.
func (r *Runtime) ProcessRecord(ctx context.Context, recordID string) (Result, error) {
	if r == nil || r.client == nil {
		return Result{}, runtimeError("qrsync: runtime is not initialized")
	}
	ref, err := r.queries.GetRecordReference.Query(ctx, query.GetRecordReferenceMessage{RecordID: recordID})
	if err != nil {
		return Result{}, err
	}
	return r.orchestrator.Process(ctx, ref)
}

// RegisterCommands subscribes the runtime commands and queries on the
// go-command dispatcher.
func (r *Runtime) RegisterCommands(adapter *gocommand.RegistryAdapter) (gocommand.Subscriptions, error) {
	if r == nil {
		return nil, runtimeError("qrsync: runtime is not initialized")
	}
	if adapter == nil {
		adapter = gocommand.NewRegistryAdapter(nil)
	}
	return gocommand.RegisterQRSync(adapter, gocommand.Handlers{
		ProcessRecord:      r.commands.ProcessRecord,
		SweepPending:       r.commands.SweepPending,
		ListPending:        r.queries.ListPending,
		GetRecordReference: r.queries.GetRecordReference,
	})
}

func (r *Runtime) logReport(ctx context.Context, report Report) {
	fields := map[string]any{
		"collected":   report.Collected,
		"succeeded":   report.Succeeded,
		"failed":      report.Failed,
		"skipped":     len(report.Skipped),
		"duration_ms": report.Duration.Milliseconds(),
	}
	if report.Failed > 0 || len(report.Skipped) > 0 {
		core.LogWarn(ctx, r.logger, "sweep finished with failures", fields)
		return
	}
	core.LogInfo(ctx, r.logger, "sweep finished", fields)
}
