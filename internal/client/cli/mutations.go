package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRetryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <mutation-id>",
		Short: "Give a failed mutation a fresh retry budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}

			if err := app.Engine.Retry(ctx, args[0]); err != nil {
				return err
			}
			if !rootOpts.JSON {
				rootOpts.IO.Printf("Mutation %s will be retried.\n", args[0])
			}
			return nil
		},
	}
}

func newDiscardCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "discard <mutation-id>",
		Short: "Drop a queued mutation and its local effect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscard(cmd.Context(), rootOpts, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runDiscard(ctx context.Context, rootOpts *RootOptions, id string, yes bool) error {
	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}

	m, ok := app.Queue.Get(id)
	if !ok {
		return fmt.Errorf("mutation %s not found", id)
	}

	out := rootOpts.IO
	if !yes && out.IsTerminal() {
		out.Println(formatMutation(m))
		answer, err := out.ReadInput("Discard this change? [y/N]: ")
		if err != nil {
			return fmt.Errorf("failed to read answer: %w", err)
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			out.Println("Kept.")
			return nil
		}
	}

	if err := app.Engine.Discard(ctx, id); err != nil {
		return err
	}
	if !rootOpts.JSON {
		out.Printf("Mutation %s discarded.\n", id)
	}
	return nil
}
