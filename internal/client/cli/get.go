package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/repsync/internal/models"
)

type entityView struct {
	Entity  *models.Entity     `json:"entity"`
	Pending []*models.Mutation `json:"pending,omitempty"`
}

func newGetCommand(rootOpts *RootOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show the current view of an entity",
		Long: `Show the current view of an entity: the last known server
version with queued local changes on top.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), rootOpts, args[0], args[1], refresh)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "read the server version first")
	return cmd
}

func runGet(ctx context.Context, rootOpts *RootOptions, entityType, id string, refresh bool) error {
	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}

	var view *models.Entity
	if refresh {
		view, err = app.Engine.Fetch(ctx, entityType, id)
		if err != nil {
			return err
		}
	} else {
		view = app.Engine.Entity(entityType, id)
	}
	if view == nil {
		return fmt.Errorf("%s/%s not found", entityType, id)
	}

	pending := app.Queue.PendingFor(view.Key())
	out := rootOpts.IO
	return rootOpts.emit(entityView{Entity: view, Pending: pending}, func() {
		out.Println(formatEntity(view))
		if !view.UpdatedAt.IsZero() {
			out.Printf("Updated: %s by %s\n", view.UpdatedAt.Format("2006-01-02 15:04:05"), view.Origin)
		}
		for _, m := range pending {
			out.Printf("  queued: %s\n", formatMutation(m))
		}
	})
}
