package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/repsync/internal/models"
)

func newConflictsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Review and resolve conflicts",
	}

	cmd.AddCommand(newConflictsListCommand(rootOpts))
	cmd.AddCommand(newConflictsResolveCommand(rootOpts))
	return cmd
}

func newConflictsListCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conflicts waiting for a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}

			var records []*models.ConflictRecord
			if all {
				records, err = app.Resolver.List(ctx)
			} else {
				records, err = app.Engine.Conflicts(ctx)
			}
			if err != nil {
				return err
			}
			if records == nil {
				records = []*models.ConflictRecord{}
			}

			out := rootOpts.IO
			return rootOpts.emit(records, func() {
				if len(records) == 0 {
					out.Println("No conflicts.")
					return
				}
				for _, rec := range records {
					out.Println(formatConflict(rec))
					out.Printf("  local:  %s\n", formatFields(rec.LocalValue))
					out.Printf("  remote: %s\n", formatFields(rec.RemoteValue))
				}
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include resolved conflicts")
	return cmd
}

func newConflictsResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "resolve <id> <kept-local|kept-remote|merged> [field=value...]",
		Short: "Resolve a conflict",
		Long: `Resolve a conflict.

kept-local re-sends the local change on top of the server version,
kept-remote drops it, merged sends the given fields.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), rootOpts, args[0], models.Resolution(args[1]), data, args[2:])
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "merged value as a JSON object")
	return cmd
}

func runResolve(ctx context.Context, rootOpts *RootOptions, id string, decision models.Resolution, data string, args []string) error {
	var value map[string]any
	if decision == models.ResolutionMerged {
		var err error
		value, err = mergePayload(data, args)
		if err != nil {
			return err
		}
	} else if data != "" || len(args) > 0 {
		return fmt.Errorf("fields are only accepted for merged")
	}

	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}

	rec, res, err := app.Engine.ResolveConflict(ctx, id, decision, value)
	if err != nil {
		return err
	}

	out := rootOpts.IO
	return rootOpts.emit(rec, func() {
		out.Printf("Conflict %s resolved: %s\n", rec.ID, rec.Resolution)
		if res != nil {
			out.Printf("Queued %s\n", res.MutationID)
			if res.Entity != nil {
				out.Println(formatEntity(res.Entity))
			}
		}
	})
}
