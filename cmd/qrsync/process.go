package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func processCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "process <record-id>",
		Short: "Attach a QR code to a single record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.newRuntime(flags.runtimeConfig(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := rt.Config().ValidateForSweep(); err != nil {
				return err
			}
			result, err := rt.ProcessRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"record_id":    result.RecordID,
				"external_key": result.ExternalKey,
				"file_id":      result.FileID,
				"session_id":   result.SessionID,
				"duration":     result.Duration.String(),
			})
		},
	}
}
