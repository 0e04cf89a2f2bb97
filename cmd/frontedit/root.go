package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-frontedit/internal/logging"
	"github.com/goliatone/go-frontedit/internal/prompt"
	"github.com/goliatone/go-frontedit/pkg/store/dynamo"
)

// app carries state shared by the subcommands.
type app struct {
	configPath string
	fixtures   string
	logLevel   string
	verbose    bool

	settings *Settings
	logger   *slog.Logger
	closer   io.Closer

	// Overridable in tests.
	driver     prompt.Driver
	dialDynamo func(ctx context.Context, opts dynamo.ClientOptions) (dynamo.Client, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithApp(&app{})
}

func newRootCmdWithApp(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontedit",
		Short: "Overlay in-place editing controls onto rendered HTML",
		Long: `frontedit scans rendered pages for <edit> markers and edit="" attributes,
resolves them to record fields and renders the editing wrappers. It can also
strip markers, serve pages with a save endpoint and edit records from the
terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", os.Getenv("FRONTEDIT_CONFIG"), "Settings file (YAML)")
	flags.StringVar(&a.fixtures, "fixtures", "", "Record fixtures for the memory store")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Shorthand for --log-level=debug")

	cmd.AddCommand(
		newRenderCmd(a),
		newStripCmd(a),
		newServeCmd(a),
		newEditCmd(a),
		newImportCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	settings, err := LoadSettings(a.configPath)
	if err != nil {
		return err
	}
	if a.fixtures != "" {
		settings.Store.Fixtures = a.fixtures
	}
	if a.logLevel != "" {
		settings.Log.Level = a.logLevel
	}
	if a.verbose {
		settings.Log.Level = "debug"
	}

	logger, closer, err := logging.New(logging.Options{
		Format: settings.Log.Format,
		Level:  settings.Log.Level,
		File:   settings.Log.File,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = logger
	a.closer = closer
	return nil
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
