package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/repsync/internal/client/connectivity"
	clientsync "github.com/iudanet/repsync/internal/client/sync"
	"github.com/iudanet/repsync/internal/models"
)

type outcomeView struct {
	NextRetryAt *time.Time             `json:"next_retry_at,omitempty"`
	Entity      *models.Entity         `json:"entity,omitempty"`
	Conflict    *models.ConflictRecord `json:"conflict,omitempty"`
	MutationID  string                 `json:"mutation_id"`
	EntityKey   string                 `json:"entity_key"`
	Kind        string                 `json:"kind"`
	Error       string                 `json:"error,omitempty"`
}

func newRunCommand(rootOpts *RootOptions) *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep synchronizing until interrupted",
		Long: `Keep synchronizing until interrupted: watch connectivity, send
queued changes whenever the server is reachable and apply changes made by
other devices.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), rootOpts, topic)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "follow changes of one entity type only")
	return cmd
}

func runRun(ctx context.Context, rootOpts *RootOptions, topic string) error {
	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}
	out := rootOpts.IO

	stopOutcomes := app.Engine.OnOutcome(func(o *clientsync.Outcome) {
		if rootOpts.JSON {
			_ = rootOpts.writeJSON(viewOutcome(o))
			return
		}
		out.Println(formatOutcome(o))
	})
	defer stopOutcomes()

	stopStatus := app.Monitor.Subscribe(func(s connectivity.Status) {
		if !rootOpts.JSON {
			out.Printf("connectivity: online=%t reachable=%t\n", s.Online, s.BackendReachable)
		}
	})
	defer stopStatus()

	if err := app.Engine.Start(ctx); err != nil {
		return err
	}
	defer app.Engine.Stop()

	if !rootOpts.JSON {
		out.Printf("Syncing %d queued change(s), press Ctrl+C to stop.\n", app.Queue.Len())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Monitor.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return app.Feed(topic).Run(gctx)
	})
	return g.Wait()
}

func viewOutcome(o *clientsync.Outcome) outcomeView {
	v := outcomeView{
		Entity:     o.Entity,
		Conflict:   o.Conflict,
		MutationID: o.MutationID,
		EntityKey:  o.EntityKey.String(),
		Kind:       string(o.Kind),
	}
	if !o.NextRetryAt.IsZero() {
		at := o.NextRetryAt
		v.NextRetryAt = &at
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return v
}

func formatOutcome(o *clientsync.Outcome) string {
	line := fmt.Sprintf("%s %s %s", o.Kind, o.MutationID, o.EntityKey)
	switch o.Kind {
	case clientsync.OutcomeApplied:
		if o.Entity != nil {
			line += fmt.Sprintf(" v%d", o.Entity.Version)
		}
	case clientsync.OutcomeConflict:
		if o.Conflict != nil {
			line += fmt.Sprintf(" conflict=%s %s", o.Conflict.ID, o.Conflict.Resolution)
		}
	case clientsync.OutcomeRetrying:
		line += " next=" + o.NextRetryAt.Format(time.RFC3339)
	}
	if o.Err != nil {
		line += fmt.Sprintf(" error=%q", o.Err.Error())
	}
	return line
}
