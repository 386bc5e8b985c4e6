package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

type pendingEntry struct {
	RecordID    string `json:"record_id"`
	ExternalKey string `json:"external_key,omitempty"`
	StableUUID  string `json:"stable_uuid,omitempty"`
	Error       string `json:"error,omitempty"`
}

func pendingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List the records the next sweep would process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := flags.newRuntime(flags.runtimeConfig(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			pending, err := rt.Pending(cmd.Context())
			if err != nil {
				return err
			}
			entries := make([]pendingEntry, 0, len(pending.References)+len(pending.Skipped))
			for _, ref := range pending.References {
				entries = append(entries, pendingEntry{RecordID: ref.RecordID, ExternalKey: ref.ExternalKey, StableUUID: ref.StableUUID})
			}
			for _, skipped := range pending.Skipped {
				entries = append(entries, pendingEntry{RecordID: skipped.RecordID, Error: skipped.Error()})
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(entries)
		},
	}
}
