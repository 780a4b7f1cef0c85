// Command lttng-record-trace configures the LTTng tracing daemon to record
// a kernel and/or userspace trace, either around a command or until
// interrupted.
//
// Events to enable are selected through named profiles resolved on a search
// path, or with --all. The tool creates a session, configures channels,
// events, and context, starts tracing, runs the given command (or waits for
// an interrupt), then stops and destroys the session and reports where the
// trace was written.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/TheMatthew/lttng-utils/log"
	"github.com/TheMatthew/lttng-utils/lttng"
	"github.com/TheMatthew/lttng-utils/profile"
	"github.com/TheMatthew/lttng-utils/profiler"
	"github.com/TheMatthew/lttng-utils/record"
	"github.com/TheMatthew/lttng-utils/version"
)

func main() {
	os.Exit(run0())
}

func run0() int {
	logCfg := log.NewConfig()
	recCfg := record.NewConfig()
	prof := profiler.New()
	client := lttng.NewClient()

	rootCmd := &cobra.Command{
		Use:   "lttng-record-trace [flags] [--] [command...]",
		Short: "Record an LTTng trace for a command or interactive session",
		Long: `lttng-record-trace drives the LTTng daemon through one tracing session.
Profiles name the kernel and userspace events to enable; several can be
combined with -p and are merged with duplicates removed. With a command,
tracing covers the command's execution; without one, tracing runs until
interrupted (Ctrl-C).`,
		Example: `  lttng-record-trace -p cpu ls -la
  lttng-record-trace -p cpu,memory -o /tmp/traces myserver --port 8080
  lttng-record-trace -a
  lttng-record-trace -l`,
		Version:       version.String(),
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			err := setupLogging(logCfg, recCfg.Verbose)
			if err != nil {
				return err
			}

			return prof.Start()
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return run(recCfg, client, args)
		},
	}

	rootCmd.AddCommand(newSchemaCmd(), newSessionsCmd(client))

	logCfg.RegisterFlags(rootCmd.PersistentFlags())
	prof.RegisterFlags(rootCmd.PersistentFlags())
	recCfg.RegisterFlags(rootCmd.Flags())

	for _, register := range []func(*cobra.Command) error{
		logCfg.RegisterCompletions,
		recCfg.RegisterCompletions,
	} {
		completionErr := register(rootCmd)
		if completionErr != nil {
			fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
		}
	}

	err := rootCmd.Execute()

	stopErr := prof.Stop()
	if stopErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", stopErr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)

		return 1
	}

	return 0
}

// setupLogging installs the default slog logger. The -v count raises the
// configured level but never lowers it below the --log-level value.
func setupLogging(cfg *log.Config, verbose int) error {
	switch {
	case verbose >= 2:
		cfg.Level = string(log.LevelDebug)
	case verbose == 1:
		cfg.Level = string(log.LevelInfo)
	}

	handler, err := cfg.NewHandler(os.Stderr)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))

	return nil
}

func run(cfg *record.Config, client *lttng.Client, args []string) (err error) {
	store := profile.NewStore(cfg.SearchPath()...)

	switch {
	case cfg.List:
		return listProfiles(store)
	case cfg.Show != "":
		return showProfile(store, cfg.Show)
	}

	events := store.Resolve(cfg.ProfileNames())
	if events.Empty() && !cfg.All {
		return fmt.Errorf("%w: no events resolved and --all not given", record.ErrNothingToTrace)
	}

	rec := cfg.NewRecorder(client)

	// Last-resort cleanup: any failure or panic past this point may have
	// left daemon state behind.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s", r, debug.Stack())
			destroyAll(client)

			err = fmt.Errorf("panic during recording: %v", r)
		}
	}()

	outputDir, err := rec.Record(context.Background(), events, args)
	if err != nil {
		slog.Error("recording failed", "error", err)
		destroyAll(client)

		return err
	}

	if !cfg.DryRun {
		fmt.Println("Trace available at", outputDir)
	}

	return nil
}

// newSessionsCmd lists the sessions currently known to the tracing daemon,
// e.g. ones left behind by an interrupted recording.
func newSessionsCmd(client *lttng.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions known to the tracing daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.List(cmd.Context())
		},
	}
}

func destroyAll(client *lttng.Client) {
	err := client.DestroyAll(context.Background())
	if err != nil {
		slog.Warn("destroying all sessions failed", "error", err)
	}
}
