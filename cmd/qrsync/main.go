package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "qrsync",
		Short:         "Bind QR code artifacts to Notion database records",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.bind(rootCmd)

	rootCmd.AddCommand(sweepCmd(flags))
	rootCmd.AddCommand(pendingCmd(flags))
	rootCmd.AddCommand(processCmd(flags))
	rootCmd.AddCommand(serveCmd(flags))
	return rootCmd
}
