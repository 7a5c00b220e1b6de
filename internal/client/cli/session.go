package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/repsync/internal/models"
)

func newSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Take part in a live shared session",
	}

	cmd.AddCommand(newSessionCreateCommand(rootOpts))
	cmd.AddCommand(newSessionJoinCommand(rootOpts))
	cmd.AddCommand(newSessionPublishCommand(rootOpts))
	cmd.AddCommand(newSessionWatchCommand(rootOpts))
	cmd.AddCommand(newSessionLeaveCommand(rootOpts))
	cmd.AddCommand(newSessionEndCommand(rootOpts))
	return cmd
}

func newSessionCreateCommand(rootOpts *RootOptions) *cobra.Command {
	settings := models.SessionSettings{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a session hosted by this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}

			sess, err := app.Sessions.Create(ctx, settings)
			if err != nil {
				return err
			}
			return printSession(rootOpts, sess)
		},
	}

	cmd.Flags().StringVar(&settings.Name, "name", "", "session name")
	cmd.Flags().IntVar(&settings.RestSeconds, "rest-seconds", 0, "default rest between sets")
	cmd.Flags().BoolVar(&settings.SyncRestTimers, "sync-rest-timers", false, "share rest timers between participants")
	return cmd
}

func newSessionJoinCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a session by its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}

			sess, err := app.Sessions.Join(ctx, args[0])
			if err != nil {
				return err
			}
			return printSession(rootOpts, sess)
		},
	}
}

func printSession(rootOpts *RootOptions, sess *models.Session) error {
	out := rootOpts.IO
	return rootOpts.emit(sess, func() {
		out.Printf("Session %s\n", sess.ID)
		out.Printf("Code:         %s\n", sess.Code)
		out.Printf("Host:         %s\n", sess.HostID)
		out.Printf("Participants: %d\n", len(sess.Participants))
		if sess.Settings.SyncRestTimers {
			out.Printf("Rest timers:  shared, %ds\n", sess.Settings.RestSeconds)
		}
	})
}

func newSessionPublishCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		data        string
		includeSelf bool
	)

	cmd := &cobra.Command{
		Use:   "publish <set_completed|rest_timer_synced|progress> [field=value...]",
		Short: "Send an event to the other participants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			payload, err := mergePayload(data, args[1:])
			if err != nil {
				return err
			}

			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}

			seq, err := app.Sessions.Publish(ctx, models.SessionEventType(args[0]), payload, !includeSelf)
			if err != nil {
				return err
			}
			out := rootOpts.IO
			return rootOpts.emit(map[string]int64{"seq": seq}, func() {
				out.Printf("Published event #%d\n", seq)
			})
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "payload as a JSON object")
	cmd.Flags().BoolVar(&includeSelf, "include-self", false, "deliver the event to this device too")
	return cmd
}

func newSessionWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print session events until the session ends",
		Long: `Print session events until the session ends or the command is
interrupted. Output is one JSON object per line unless stdout is a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionWatch(cmd.Context(), rootOpts)
		},
	}
}

func runSessionWatch(ctx context.Context, rootOpts *RootOptions) error {
	app, err := rootOpts.App(ctx)
	if err != nil {
		return err
	}

	out := rootOpts.IO
	human := !rootOpts.JSON && out.IsTerminal()

	var writeErr error
	err = app.Sessions.Watch(ctx, func(ev models.SessionEvent) {
		if !human {
			if err := rootOpts.writeJSON(ev); err != nil && writeErr == nil {
				writeErr = err
			}
			return
		}
		out.Println(formatEvent(ev))
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	return writeErr
}

func formatEvent(ev models.SessionEvent) string {
	at := ev.At.Local().Format(time.TimeOnly)
	switch ev.Type {
	case models.EventSnapshot:
		if ev.Snapshot != nil {
			return at + " joined session " + ev.Snapshot.Code + " with " + formatParticipants(ev.Snapshot)
		}
	case models.EventParticipantJoined, models.EventParticipantLeft, models.EventSessionEnded:
		return at + " " + string(ev.Type) + " " + ev.SenderID
	}
	return at + " " + string(ev.Type) + " from " + ev.SenderID + " " + formatFields(ev.Payload)
}

func newSessionLeaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}
			if err := app.Sessions.Leave(ctx); err != nil {
				return err
			}
			if !rootOpts.JSON {
				rootOpts.IO.Println("Left the session.")
			}
			return nil
		},
	}
}

func newSessionEndCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the current session for everyone (host only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rootOpts.App(ctx)
			if err != nil {
				return err
			}
			if err := app.Sessions.End(ctx); err != nil {
				return err
			}
			if !rootOpts.JSON {
				rootOpts.IO.Println("Session ended.")
			}
			return nil
		},
	}
}
