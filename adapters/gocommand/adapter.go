package gocommand

import (
	"context"
	"net/http"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	goerrors "github.com/goliatone/go-errors"
	qrcommand "github.com/goliatone/go-qrsync/command"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/pipeline"
	qrquery "github.com/goliatone/go-qrsync/query"
)

func wiringError(message string) error {
	return goerrors.New("gocommand: "+message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorInternal)
}

// ValidateMessageContract runs go-command message validation and also
// rejects messages with a blank Type().
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	typed, ok := msg.(gocmd.Message)
	if !ok || strings.TrimSpace(typed.Type()) == "" {
		return goerrors.NewValidation("gocommand: invalid message", goerrors.FieldError{
			Field:   "type",
			Message: "message type is required",
		}).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.ServiceErrorBadInput)
	}
	return nil
}

// RegistryAdapter guards a go-command registry against nil use.
type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) ready() error {
	if a == nil || a.registry == nil {
		return wiringError("registry is not configured")
	}
	return nil
}

// Register adds a command or query handler to the registry.
func (a *RegistryAdapter) Register(handler any) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.RegisterCommand(handler)
}

func (a *RegistryAdapter) Initialize() error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.Initialize()
}

func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessageContract(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessageContract(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}

// RegisterAndSubscribe subscribes cmd on the dispatcher and registers it.
// The subscription is released when registration fails.
func RegisterAndSubscribe[T any](adapter *RegistryAdapter, cmd gocmd.Commander[T], runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
	if cmd == nil {
		return nil, wiringError("command is required")
	}
	return attach(adapter, cmd, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	})
}

func RegisterAndSubscribeQuery[T any, R any](adapter *RegistryAdapter, qry gocmd.Querier[T, R], runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
	if qry == nil {
		return nil, wiringError("query is required")
	}
	return attach(adapter, qry, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	})
}

func attach(adapter *RegistryAdapter, handler any, subscribe func() commanddispatcher.Subscription) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	subscription := subscribe()
	if err := adapter.Register(handler); err != nil {
		Subscriptions{subscription}.Unsubscribe()
		return nil, err
	}
	return subscription, nil
}

// Subscriptions releases every dispatcher subscription it holds.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// Handlers are the qrsync commands and queries exposed on the dispatcher.
// Nil entries are skipped.
type Handlers struct {
	ProcessRecord      *qrcommand.ProcessRecordCommand
	SweepPending       *qrcommand.SweepPendingCommand
	ListPending        *qrquery.ListPendingQuery
	GetRecordReference *qrquery.GetRecordReferenceQuery
}

// RegisterQRSync subscribes and registers every handler, then initializes
// the registry. On failure nothing stays subscribed.
func RegisterQRSync(adapter *RegistryAdapter, handlers Handlers, runnerOpts ...runner.Option) (Subscriptions, error) {
	steps := make([]func() (commanddispatcher.Subscription, error), 0, 4)
	if handlers.ProcessRecord != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe[qrcommand.ProcessRecordMessage](adapter, handlers.ProcessRecord, runnerOpts...)
		})
	}
	if handlers.SweepPending != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe[qrcommand.SweepPendingMessage](adapter, handlers.SweepPending, runnerOpts...)
		})
	}
	if handlers.ListPending != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[qrquery.ListPendingMessage, pipeline.Pending](adapter, handlers.ListPending, runnerOpts...)
		})
	}
	if handlers.GetRecordReference != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery[qrquery.GetRecordReferenceMessage, core.RecordReference](adapter, handlers.GetRecordReference, runnerOpts...)
		})
	}

	subs := make(Subscriptions, 0, len(steps))
	for _, step := range steps {
		sub, err := step()
		if err != nil {
			subs.Unsubscribe()
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := adapter.Initialize(); err != nil {
		subs.Unsubscribe()
		return nil, err
	}
	return subs, nil
}
