package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/repsync/internal/client/iocli"
	clientsync "github.com/iudanet/repsync/internal/client/sync"
	"github.com/iudanet/repsync/internal/models"
)

type submitOptions struct {
	data    string
	session bool
	sync    bool
}

func newSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit <create|update|delete> <type> <id|-> [field=value...]",
		Short: "Record a change locally and queue it for the server",
		Long: `Record a change locally and queue it for the server.

The change is visible immediately. Use "-" as the id of a create to
generate one. A field given as "name=" is removed.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), rootOpts, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.data, "data", "", "payload as a JSON object")
	cmd.Flags().BoolVar(&opts.session, "session", false, "attach the change to the current live session")
	cmd.Flags().BoolVar(&opts.sync, "sync", false, "send queued changes right away if the server is reachable")

	return cmd
}

func runSubmit(ctx context.Context, rootOpts *RootOptions, opts *submitOptions, args []string) error {
	kind := models.Operation(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown operation %q, use create, update or delete", args[0])
	}

	payload, err := mergePayload(opts.data, args[3:])
	if err != nil {
		return err
	}

	op := clientsync.Operation{
		Kind:       kind,
		EntityType: args[1],
		EntityID:   args[2],
		Payload:    payload,
	}
	if op.EntityID == "-" {
		op.EntityID = ""
	}

	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}

	if opts.session {
		ticket, err := app.Sessions.Current(ctx)
		if err != nil {
			return err
		}
		op.SessionID = ticket.SessionID
	}

	res, err := app.Engine.Submit(ctx, op)
	if err != nil {
		return err
	}

	out := rootOpts.IO
	if err := rootOpts.emit(res, func() {
		out.Printf("Queued %s (%s)\n", res.MutationID, res.Status)
		if res.Entity != nil {
			out.Println(formatEntity(res.Entity))
		} else {
			out.Printf("%s/%s deleted\n", op.EntityType, op.EntityID)
		}
	}); err != nil {
		return err
	}

	if !opts.sync {
		return nil
	}
	return drainNow(ctx, rootOpts, app, out)
}

// drainNow проверяет связь и отправляет очередь, если сервер доступен
func drainNow(ctx context.Context, rootOpts *RootOptions, app *App, out iocli.IO) error {
	status := app.Monitor.CheckNow(ctx)
	if !status.BackendReachable {
		if !rootOpts.JSON {
			out.Println("Server unreachable, changes stay queued.")
		}
		return nil
	}

	stats, err := app.Engine.Drain(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return rootOpts.emit(stats, func() { printStats(out, stats) })
}

func printStats(out iocli.IO, stats clientsync.DrainStats) {
	out.Printf("Sent: %d, applied: %d, conflicts: %d, rejected: %d, retrying: %d, failed: %d\n",
		stats.Sent, stats.Applied, stats.Conflicts, stats.Rejected, stats.Retrying, stats.Failed)
}
