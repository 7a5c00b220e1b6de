package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iudanet/repsync/internal/config"
	"github.com/iudanet/repsync/internal/server"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	flags := pflag.NewFlagSet("repsync-server", pflag.ExitOnError)
	showVersion := flags.Bool("version", false, "Show version information")
	configFile := flags.String("config", "", "path to YAML config file")
	flags.String("addr", "", "listen address")
	flags.String("db-path", "", "path to server database")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("janitor-schedule", "", "cleanup schedule (cron expression or @every)")
	flags.StringSlice("entity-types", nil, "accepted entity types, empty accepts any")
	flags.Int("rate-limit", 0, "requests per rate window per client address, 0 disables")
	_ = flags.Parse(os.Args[1:])

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.LoadServer(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Server, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting repsync-server", "version", Version, "addr", cfg.Addr, "db_path", cfg.DBPath)

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("Failed to close server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func printVersion() {
	fmt.Printf("repsync-server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
