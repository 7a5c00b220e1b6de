package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/repsync/internal/client/connectivity"
	"github.com/iudanet/repsync/internal/client/session"
	"github.com/iudanet/repsync/internal/models"
)

type statusView struct {
	NextRetryAt  *time.Time                    `json:"next_retry_at,omitempty"`
	Queue        map[models.MutationStatus]int `json:"queue"`
	NodeID       string                        `json:"node_id"`
	ServerURL    string                        `json:"server_url"`
	SessionID    string                        `json:"session_id,omitempty"`
	Connectivity connectivity.Status           `json:"connectivity"`
	Exhausted    int                           `json:"exhausted"`
	Conflicts    int                           `json:"conflicts"`
}

func newStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, queue and conflict status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), rootOpts)
		},
	}
}

func runStatus(ctx context.Context, rootOpts *RootOptions) error {
	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}

	view := statusView{
		NodeID:       app.NodeID,
		ServerURL:    app.Config.ServerURL,
		Connectivity: app.Monitor.CheckNow(ctx),
		Queue:        make(map[models.MutationStatus]int),
	}

	for _, m := range app.Engine.Pending() {
		view.Queue[m.Status]++
		if m.Exhausted {
			view.Exhausted++
		}
	}
	if at, ok := app.Queue.NextRetryAt(); ok {
		view.NextRetryAt = &at
	}

	conflicts, err := app.Engine.Conflicts(ctx)
	if err != nil {
		return err
	}
	view.Conflicts = len(conflicts)

	ticket, err := app.Sessions.Current(ctx)
	switch {
	case err == nil:
		view.SessionID = ticket.SessionID
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrTicketExpired):
	default:
		return err
	}

	out := rootOpts.IO
	return rootOpts.emit(view, func() {
		out.Printf("Device:  %s\n", view.NodeID)
		out.Printf("Server:  %s\n", view.ServerURL)
		switch {
		case view.Connectivity.BackendReachable:
			out.Println("Status:  online")
		case view.Connectivity.Online:
			out.Println("Status:  network up, server unreachable")
		default:
			out.Println("Status:  offline")
		}

		total := 0
		for _, n := range view.Queue {
			total += n
		}
		if total == 0 {
			out.Println("Queue:   empty")
		} else {
			out.Printf("Queue:   %d pending, %d in-flight, %d failed (%d exhausted)\n",
				view.Queue[models.StatusPending], view.Queue[models.StatusInFlight],
				view.Queue[models.StatusFailed], view.Exhausted)
		}
		if view.NextRetryAt != nil {
			out.Printf("Retry:   %s\n", view.NextRetryAt.Format(time.RFC3339))
		}
		if view.Conflicts > 0 {
			out.Printf("Conflicts: %d unresolved, see 'repsync conflicts list'\n", view.Conflicts)
		}
		if view.SessionID != "" {
			out.Printf("Session: %s\n", view.SessionID)
		}
	})
}
