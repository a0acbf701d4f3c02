// Package main is the entry point for xterminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/xterminal/internal/action"
	"github.com/dshills/xterminal/internal/app"
	"github.com/dshills/xterminal/internal/config"
	"github.com/dshills/xterminal/internal/script"
	"github.com/dshills/xterminal/internal/surface"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options
	noWatch := false

	root := &cobra.Command{
		Use:   "xterminal",
		Short: "A tabbed, split-pane terminal emulator",
		Long: `xterminal runs shells in tabs of split panes inside one terminal window.

Press the prefix key (ctrl+a by default) followed by a binding:
  |  split vertically      -  split horizontally
  x  close pane            o  next pane
  c  new tab               n  next tab
  b  toggle broadcast      q  quit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Watch = !noWatch
			return runWindow(cmd.Context(), opts)
		},
	}
	flags := root.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "settings file (default "+config.DefaultPath()+")")
	flags.StringVarP(&opts.LayoutPath, "layout", "l", "", "Lua layout script to run at startup")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFile, "log-file", "", "log file")
	flags.BoolVar(&noWatch, "no-watch", false, "do not reload settings when the file changes")

	root.AddCommand(newVersionCmd(), newCheckCmd())
	return root
}

func runWindow(ctx context.Context, opts app.Options) error {
	application, err := app.New(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer application.Close()

	scr, err := surface.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create terminal: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = application.Run(ctx, scr)
	s := application.Metrics().Snapshot()
	application.Logger().Info("exiting after %s: %d sessions, %d frames (%.1f fps)",
		s.Uptime.Round(time.Second), s.Spawns, s.FrameCount, s.AvgFPS())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "xterminal %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}

func newCheckCmd() *cobra.Command {
	var configPath, layoutPath string
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the settings file and layout script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkConfig(cmd, configPath, layoutPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "settings file")
	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "layout script (default startup.layout)")
	return cmd
}

func checkConfig(cmd *cobra.Command, configPath, layoutPath string) error {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	s, err := config.Load(configPath)
	if err != nil {
		return err
	}
	var errs []error
	if _, err := action.NewKeymap(s.Keys); err != nil {
		errs = append(errs, fmt.Errorf("keys: %w", err))
	}
	if layoutPath == "" {
		layoutPath = s.Startup.Layout
	}
	if layoutPath != "" {
		if err := script.Check(layoutPath); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", configPath)
	return nil
}
