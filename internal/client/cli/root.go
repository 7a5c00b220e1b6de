// Package cli implements the repsync command line client
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/repsync/internal/client/iocli"
	"github.com/iudanet/repsync/internal/config"
)

// VersionInfo is set by the binary through ldflags
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
}

// OpenFunc builds the App for a loaded configuration
type OpenFunc func(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*App, error)

// RootOptions holds global flags and the lazily opened App
type RootOptions struct {
	IO         iocli.IO
	Open       OpenFunc
	cfg        *config.Client
	app        *App
	logger     *slog.Logger
	Version    VersionInfo
	ConfigFile string
	JSON       bool
}

// NewRootCommand creates the root command of the repsync CLI
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts.IO == nil {
		opts.IO = iocli.NewStdio()
	}
	if opts.Open == nil {
		opts.Open = Open
	}

	cmd := &cobra.Command{
		Use:   "repsync",
		Short: "Offline-aware sync client",
		Long: `repsync records changes locally, shows them immediately and
synchronizes them with the server once it is reachable.`,
		SilenceUsage:  true,
		SilenceErrors: true, // ошибку печатает main
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return err
			}
			level, _ := config.ParseLevel(cfg.LogLevel)
			opts.cfg = cfg
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	// Глобальные флаги; значения по умолчанию задает config
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")
	flags.String("server-url", "", "server URL")
	flags.String("db-path", "", "path to local database")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.BoolVar(&opts.JSON, "json", false, "print JSON instead of text")

	cmd.AddCommand(newSubmitCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newPendingCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newConflictsCommand(opts))
	cmd.AddCommand(newRetryCommand(opts))
	cmd.AddCommand(newDiscardCommand(opts))
	cmd.AddCommand(newSessionCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))

	return cmd
}

// Execute runs the CLI with args and closes the App afterwards
func Execute(ctx context.Context, args []string, opts *RootOptions) error {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	defer func() {
		if err := opts.Close(); err != nil && opts.logger != nil {
			opts.logger.Error("Failed to close client", "error", err)
		}
	}()
	return cmd.ExecuteContext(ctx)
}

// App opens the client on first use
func (o *RootOptions) App(ctx context.Context) (*App, error) {
	if o.app != nil {
		return o.app, nil
	}
	if o.cfg == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}

	app, err := o.Open(ctx, o.cfg, o.logger)
	if err != nil {
		return nil, err
	}
	o.app = app
	return app, nil
}

// Close closes the App if it was opened
func (o *RootOptions) Close() error {
	if o.app == nil {
		return nil
	}
	app := o.app
	o.app = nil
	return app.Close()
}

// emit печатает v как JSON в режиме --json, иначе вызывает text
func (o *RootOptions) emit(v any, text func()) error {
	if !o.JSON {
		text()
		return nil
	}
	return o.writeJSON(v)
}

func (o *RootOptions) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = o.IO.Write(append(data, '\n'))
	return err
}
