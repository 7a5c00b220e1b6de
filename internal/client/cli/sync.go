package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrServerUnreachable is returned by sync when the server does not answer
var ErrServerUnreachable = errors.New("server unreachable")

func newSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued changes to the server once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}

			if !app.Monitor.CheckNow(ctx).BackendReachable {
				return ErrServerUnreachable
			}

			stats, err := app.Engine.Drain(ctx)
			if err != nil {
				return err
			}

			out := rootOpts.IO
			return rootOpts.emit(stats, func() {
				printStats(out, stats)
				if stats.Conflicts > 0 {
					out.Println("Run 'repsync conflicts list' to review conflicts.")
				}
			})
		},
	}
}
