package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Viskores/viskores-sub000/internal/config"
	"github.com/Viskores/viskores-sub000/internal/initialize"
	"github.com/Viskores/viskores-sub000/internal/telemetry"
	"github.com/Viskores/viskores-sub000/internal/tracker"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Trace   string // "none" | "stdout"
	Devices initialize.Options
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the viskores CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "viskores",
		Short: "Data-parallel worklet engine",
		Long: `Run data-parallel worklets on whichever execution device is available.

Devices are tried in preference order (kernelgrid, threadpool, vector,
serial) unless --device forces one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Devices.ListDevices {
				return cmd.Help()
			}
			env, err := newEnv(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.close()
			return printDevices(cmd.OutOrStdout(), opts.Format, env.tracker.List())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Trace, "trace", "", "trace exporter (none|stdout), overrides VISKORES_TRACE_EXPORTER")
	initialize.AddFlags(cmd.PersistentFlags(), &opts.Devices)

	cmd.AddCommand(NewDevicesCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// env is the runtime every command builds from config and flags.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	tracker *tracker.Tracker
	tracing *telemetry.Tracing
}

func newEnv(opts *RootOptions, logOut io.Writer) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := config.NewLogger(logOut, level)

	// A device on the command line replaces the configured one.
	if opts.Devices.Device != "" {
		cfg.Device = ""
	}
	t := tracker.NewDefault(logger, cfg.TrackerOptions())
	if err := cfg.ApplyDevices(t); err != nil {
		return nil, fmt.Errorf("configure devices: %w", err)
	}
	if err := opts.Devices.Apply(t); err != nil {
		return nil, err
	}

	exporter := cfg.TraceExporter
	if opts.Trace != "" {
		exporter = opts.Trace
	}
	tracing, err := telemetry.NewTracing(exporter, "viskores", logOut)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, tracker: t, tracing: tracing}, nil
}

func (e *env) close() {
	if err := e.tracing.Shutdown(context.Background()); err != nil {
		e.logger.Warn("trace shutdown failed", "error", err)
	}
}
