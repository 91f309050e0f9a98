package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/device/serial"
	"github.com/Viskores/viskores-sub000/internal/dispatch"
	"github.com/Viskores/viskores-sub000/internal/tracker"
	"github.com/Viskores/viskores-sub000/internal/worklet/library"
)

const previewLen = 8

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Size          int
	CompareSerial bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <sample>",
		Short: "Dispatch a sample worklet",
		Long: `Dispatch one of the built-in sample worklets on the selected device and
print where it ran and the first output values.

Samples: ` + strings.Join(library.SampleNames(), ", ") + `

Example:
  viskores run saxpy --size 1000000
  viskores run histogram --device threadpool --compare-serial`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.Size, "size", "n", 1024, "input domain size")
	cmd.Flags().BoolVar(&opts.CompareSerial, "compare-serial", false, "also run on the serial device and compare outputs")

	return cmd
}

// runReport is what the run command prints.
type runReport struct {
	Sample        string `json:"sample"`
	Requested     string `json:"requested_device"`
	Device        string `json:"device"`
	Size          int    `json:"size"`
	OutputDomain  int    `json:"output_domain"`
	Tiles         int    `json:"tiles"`
	Fallbacks     int    `json:"fallbacks"`
	DurationUS    int64  `json:"duration_us"`
	Preview       []any  `json:"preview"`
	MatchesSerial *bool  `json:"matches_serial,omitempty"`
}

func runSample(cmd *cobra.Command, opts *RunOptions, name string) error {
	env, err := newEnv(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.close()

	requested := env.cfg.DeviceID()
	if opts.Devices.Device != "" {
		if requested, err = device.ParseID(opts.Devices.Device); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := dispatch.New(env.tracker,
		dispatch.WithLogger(env.logger),
		dispatch.WithTracer(env.tracing.Tracer()),
	)
	res, values, err := dispatchSample(ctx, d, name, opts.Size, requested)
	if err != nil {
		return err
	}

	report := runReport{
		Sample:       name,
		Requested:    res.Requested.String(),
		Device:       res.Device.String(),
		Size:         res.InputDomain,
		OutputDomain: res.OutputDomain,
		Tiles:        res.Tiles,
		Fallbacks:    res.Fallbacks,
		DurationUS:   res.Duration.Microseconds(),
		Preview:      values[:min(previewLen, len(values))],
	}

	if opts.CompareSerial {
		ref := dispatch.New(tracker.New(env.logger, serial.New(nil)), dispatch.WithLogger(env.logger))
		_, want, err := dispatchSample(ctx, ref, name, opts.Size, device.Serial)
		if err != nil {
			return fmt.Errorf("serial reference: %w", err)
		}
		match := slices.Equal(values, want)
		report.MatchesSerial = &match
	}

	if err := printRun(cmd.OutOrStdout(), opts.Format, report); err != nil {
		return err
	}
	if report.MatchesSerial != nil && !*report.MatchesSerial {
		return fmt.Errorf("output on %s differs from serial", report.Device)
	}
	return nil
}

func dispatchSample(ctx context.Context, d *dispatch.Dispatcher, name string, n int, id device.ID) (*dispatch.Result, []any, error) {
	sample, err := library.NewSample(name, n)
	if err != nil {
		return nil, nil, err
	}
	res, err := d.Invoke(ctx, sample.Worklet, dispatch.WithDevice(id))
	if err != nil {
		return nil, nil, err
	}
	values, err := sample.Output.Values()
	if err != nil {
		return nil, nil, fmt.Errorf("read output: %w", err)
	}
	return res, values, nil
}

func printRun(w io.Writer, format string, r runReport) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "%s ran on %s (requested %s)\n", r.Sample, r.Device, r.Requested)
	fmt.Fprintf(w, "  input %d, output %d, tiles %d, fallbacks %d, %dus\n",
		r.Size, r.OutputDomain, r.Tiles, r.Fallbacks, r.DurationUS)
	fmt.Fprintf(w, "  first values: %v\n", r.Preview)
	if r.MatchesSerial != nil {
		fmt.Fprintf(w, "  matches serial: %s\n", yesNo(*r.MatchesSerial))
	}
	return nil
}
