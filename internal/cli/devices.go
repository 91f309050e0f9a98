package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Viskores/viskores-sub000/internal/tracker"
)

// NewDevicesCommand creates the devices command.
func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List execution devices and their state",
		Long: `List every enumerated device in preference order with its availability,
enabled state, concurrency and memory use.

Example:
  viskores devices
  viskores devices --disable-device vector --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.close()
			return printDevices(cmd.OutOrStdout(), rootOpts.Format, env.tracker.List())
		},
	}
}

func printDevices(w io.Writer, format string, devices []tracker.DeviceInfo) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tDEVICE\tAVAILABLE\tENABLED\tCONCURRENCY\tGRAIN\tREASON")
	for _, d := range devices {
		rank := "-"
		if d.Rank >= 0 {
			rank = fmt.Sprint(d.Rank)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			rank, d.Name, yesNo(d.Available), yesNo(d.Enabled), d.Concurrency, d.Grain, d.Reason)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
