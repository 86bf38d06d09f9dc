package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command: a one-shot reconciliation.
func NewSyncCommand(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local favorites with the server",
		Long:  "Fetch the server's favorite set for the signed-in identity, merge it with the local set (union), and push the result back. Runs at most once per identity per device; anonymous visitors are a no-op.",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := application.Reconciler().Trigger(ctx); err != nil {
				return fmt.Errorf("could not sync: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "state: %s, %d favorites\n",
				application.Reconciler().State(), application.Cache().Count())
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall sync timeout")
	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync marker and storage state",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			cache := application.Cache()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "favorites: %d\n", cache.Count())
			if identity := cache.SyncedIdentity(); identity != "" {
				fmt.Fprintf(out, "synced for: %s\n", identity)
			} else {
				fmt.Fprintln(out, "synced for: (never)")
			}
			if cache.Degraded() {
				fmt.Fprintln(out, "storage: in-memory (degraded)")
			} else {
				fmt.Fprintln(out, "storage: persistent")
			}
			return nil
		},
	}
}
