package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iudanet/repsync/internal/models"
)

func newListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List known entities of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), rootOpts, args[0])
		},
	}
}

func runList(ctx context.Context, rootOpts *RootOptions, entityType string) error {
	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}

	entities := app.Engine.Entities(entityType)
	if entities == nil {
		entities = []*models.Entity{}
	}

	out := rootOpts.IO
	return rootOpts.emit(entities, func() {
		if len(entities) == 0 {
			out.Printf("No %s entities found.\n", entityType)
			return
		}
		for _, e := range entities {
			out.Println(formatEntity(e))
		}
	})
}

func newPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List queued mutations in send order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}

			pending := app.Engine.Pending()
			if pending == nil {
				pending = []*models.Mutation{}
			}

			out := rootOpts.IO
			return rootOpts.emit(pending, func() {
				if len(pending) == 0 {
					out.Println("Queue is empty.")
					return
				}
				for _, m := range pending {
					out.Println(formatMutation(m))
				}
			})
		},
	}
}
