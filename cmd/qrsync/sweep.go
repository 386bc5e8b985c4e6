package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-qrsync"
	"github.com/goliatone/go-qrsync/core"
)

type sweepSummary struct {
	Collected int             `json:"collected"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Duration  string          `json:"duration"`
	Failures  []recordFailure `json:"failures,omitempty"`
}

type recordFailure struct {
	RecordID    string `json:"record_id"`
	ExternalKey string `json:"external_key,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Error       string `json:"error"`
}

func sweepCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Attach a QR code to every record that has none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := flags.newRuntime(flags.runtimeConfig(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := rt.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), report)
		},
	}
}

func writeSummary(w io.Writer, report qrsync.Report) error {
	summary := sweepSummary{
		Collected: report.Collected,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   len(report.Skipped),
		Duration:  report.Duration.String(),
	}
	for _, skipped := range report.Skipped {
		summary.Failures = append(summary.Failures, recordFailure{
			RecordID: skipped.RecordID,
			Kind:     string(skipped.Kind),
			Error:    skipped.Error(),
		})
	}
	for _, outcome := range report.Failures() {
		failure := recordFailure{
			RecordID:    outcome.Reference.RecordID,
			ExternalKey: outcome.Reference.ExternalKey,
			Error:       outcome.Err.Error(),
		}
		if kind, ok := core.KindOf(outcome.Err); ok {
			failure.Kind = string(kind)
		}
		summary.Failures = append(summary.Failures, failure)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
