package gocommand

import (
	"context"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	qrcommand "github.com/goliatone/go-qrsync/command"
	"github.com/goliatone/go-qrsync/core"
	"github.com/goliatone/go-qrsync/pipeline"
	qrquery "github.com/goliatone/go-qrsync/query"
)

type okMessage struct{}

func (okMessage) Type() string { return "qrsync.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "qrsync.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "qrsync.command.test" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	err := ValidateMessageContract(invalidMessage{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected empty type to fail with a validation envelope, got %v", err)
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(gocmd.NewRegistry())
	executed := 0

	cmd := gocmd.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	subscription, err := RegisterAndSubscribe(adapter, cmd)
	if err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	defer subscription.Unsubscribe()
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

type countingRunner struct {
	calls int
}

func (r *countingRunner) Run(context.Context) (pipeline.Report, error) {
	r.calls++
	return pipeline.Report{}, nil
}

func TestRegisterQRSync_DispatchesSweepAndQueriesPending(t *testing.T) {
	runner := &countingRunner{}
	subs, err := RegisterQRSync(NewRegistryAdapter(nil), Handlers{
		SweepPending: qrcommand.NewSweepPendingCommand(runner, nil),
		ListPending:  qrquery.NewListPendingQuery(pendingCollector{}),
	})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	defer subs.Unsubscribe()

	if err := Dispatch(context.Background(), qrcommand.SweepPendingMessage{}); err != nil {
		t.Fatalf("dispatch sweep: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected sweep to run once, got %d", runner.calls)
	}

	pending, err := Query[qrquery.ListPendingMessage, pipeline.Pending](context.Background(), qrquery.ListPendingMessage{})
	if err != nil {
		t.Fatalf("query pending: %v", err)
	}
	if len(pending.References) != 1 || pending.References[0].RecordID != "p-1" {
		t.Fatalf("unexpected pending result %#v", pending)
	}
}

type pendingCollector struct{}

func (pendingCollector) CollectPending(context.Context) (pipeline.Pending, error) {
	return pipeline.Pending{References: []core.RecordReference{{RecordID: "p-1", ExternalKey: "INV-1", StableUUID: "u-1"}}}, nil
}

func TestRegisterQRSync_NilAdapterFailsWithoutSubscribing(t *testing.T) {
	subs, err := RegisterQRSync(nil, Handlers{
		SweepPending: qrcommand.NewSweepPendingCommand(&countingRunner{}, nil),
	})
	if err == nil {
		t.Fatalf("expected wiring error for nil adapter")
	}
	if len(subs) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(subs))
	}
	if _, err := RegisterAndSubscribe[dispatchMessage](NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected nil command to be rejected")
	}
}
