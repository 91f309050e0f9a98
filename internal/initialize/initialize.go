// Package initialize applies the device selection flags shared by every
// command: --device forces one backend, --disable-device turns backends off,
// and --list-devices asks the caller to print the tracker state.
package initialize

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/tracker"
)

// Options holds the parsed device flags.
type Options struct {
	Device         string
	DisableDevices []string
	ListDevices    bool
}

// AddFlags registers the device flags on fs.
func AddFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.Device, "device", "", "run only on this device ("+deviceNames()+")")
	fs.StringSliceVar(&o.DisableDevices, "disable-device", nil, "disable a device (repeatable)")
	fs.BoolVar(&o.ListDevices, "list-devices", false, "list devices and exit")
}

// Apply disables and forces devices on t.
func (o Options) Apply(t *tracker.Tracker) error {
	for _, name := range o.DisableDevices {
		id, err := device.ParseID(name)
		if err != nil {
			return fmt.Errorf("--disable-device: %w", err)
		}
		if !id.Valid() {
			return fmt.Errorf("--disable-device: %w: %s", device.ErrUnknown, name)
		}
		t.Disable(id, "disabled on the command line")
	}
	if o.Device == "" {
		return nil
	}
	id, err := device.ParseID(o.Device)
	if err != nil {
		return fmt.Errorf("--device: %w", err)
	}
	if id == device.Any {
		return nil
	}
	if err := t.Force(id); err != nil {
		return fmt.Errorf("--device: %w", err)
	}
	return nil
}

// Parse consumes the device flags from args, applies them to t, and
// returns the arguments it did not recognize, in order.
func Parse(args []string, t *tracker.Tracker) ([]string, Options, error) {
	var o Options
	fs := pflag.NewFlagSet("viskores", pflag.ContinueOnError)
	AddFlags(fs, &o)

	known, rest := splitArgs(fs, args)
	if err := fs.Parse(known); err != nil {
		return nil, Options{}, err
	}
	if err := o.Apply(t); err != nil {
		return nil, Options{}, err
	}
	return rest, o, nil
}

// splitArgs separates the arguments naming a flag of fs, with their values,
// from everything else. Nothing after "--" is treated as a flag.
func splitArgs(fs *pflag.FlagSet, args []string) (known, rest []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			rest = append(rest, args[i:]...)
			break
		}
		name, hasValue := flagName(a)
		f := fs.Lookup(name)
		if f == nil {
			rest = append(rest, a)
			continue
		}
		known = append(known, a)
		if !hasValue && f.NoOptDefVal == "" && i+1 < len(args) {
			i++
			known = append(known, args[i])
		}
	}
	return known, rest
}

func flagName(arg string) (name string, hasValue bool) {
	if len(arg) < 3 || arg[:2] != "--" {
		return "", false
	}
	name = arg[2:]
	for i := range len(name) {
		if name[i] == '=' {
			return name[:i], true
		}
	}
	return name, false
}

func deviceNames() string {
	s := device.NameAny
	for _, id := range device.Enumerated() {
		s += "|" + id.String()
	}
	return s
}
