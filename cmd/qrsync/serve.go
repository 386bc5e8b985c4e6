package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-qrsync/core"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

type serveFlags struct {
	addr           string
	secret         string
	parentID       string
	eventTypes     []string
	coalesceWindow time.Duration
}

func serveCmd(flags *globalFlags) *cobra.Command {
	serve := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive Notion webhooks and attach QR codes to new records",
		Long: `Start the webhook server.

Examples:
  qrsync serve --addr :8080
  qrsync serve --parent-id <database-id> --coalesce-window 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := flags.runtimeConfig()
			cfg.Webhook.Addr = serve.addr
			cfg.Webhook.Secret = serve.secret
			cfg.Webhook.ParentID = serve.parentID
			cfg.Webhook.EventTypes = serve.eventTypes
			cfg.Webhook.CoalesceWindow = serve.coalesceWindow

			rt, err := flags.newRuntime(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			resolved := rt.Config()
			if err := resolved.ValidateForServe(); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/", rt.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			server := &http.Server{
				Addr:              resolved.Webhook.Addr,
				Handler:           mux,
				ReadHeaderTimeout: readHeaderTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				core.LogInfo(ctx, rt.Logger(), "webhook server listening", map[string]any{"addr": server.Addr})
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			core.LogInfo(shutdownCtx, rt.Logger(), "webhook server shutting down", nil)
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&serve.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&serve.secret, "secret", "", "webhook verification token (default $NOTION_VERIFICATION_TOKEN)")
	cmd.Flags().StringVar(&serve.parentID, "parent-id", "", "only accept events whose parent is this database")
	cmd.Flags().StringSliceVar(&serve.eventTypes, "event-type", nil, "accepted event types (default page.created)")
	cmd.Flags().DurationVar(&serve.coalesceWindow, "coalesce-window", 0, "drop repeat events for a record within this window")
	return cmd
}
