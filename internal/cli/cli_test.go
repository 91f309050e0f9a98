package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Viskores/viskores-sub000/internal/tracker"
	"github.com/Viskores/viskores-sub000/internal/worklet/library"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VISKORES_CONFIG", "VISKORES_DEVICE", "VISKORES_DISABLED_DEVICES",
		"VISKORES_TRACE_EXPORTER", "VISKORES_LOG_LEVEL", "VISKORES_GRID_UNITS",
	} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "viskores", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"devices", "run", "serve"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"device", "disable-device", "list-devices", "trace"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "devices", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDevicesJSON(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "devices", "--format", "json", "--disable-device", "vector")
	require.NoError(t, err)

	var devices []tracker.DeviceInfo
	require.NoError(t, json.Unmarshal([]byte(out), &devices))
	require.Len(t, devices, 4)

	byName := map[string]tracker.DeviceInfo{}
	for _, d := range devices {
		byName[d.Name] = d
	}
	assert.False(t, byName["vector"].Enabled)
	assert.True(t, byName["serial"].Enabled)
	assert.True(t, byName["threadpool"].Enabled)
}

func TestDevicesText(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "DEVICE")
	assert.Contains(t, out, "serial")
	assert.Contains(t, out, "threadpool")
}

func TestListDevicesFlag(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "--list-devices")
	require.NoError(t, err)
	assert.Contains(t, out, "kernelgrid")
}

func TestRunSampleJSON(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "run", "saxpy", "--size", "16", "--device", "threadpool", "--compare-serial", "--format", "json")
	require.NoError(t, err)

	var r runReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "saxpy", r.Sample)
	assert.Equal(t, "threadpool", r.Device)
	assert.Equal(t, 16, r.Size)
	assert.Equal(t, []any{1.0, 3.0, 5.0, 7.0, 9.0, 11.0, 13.0, 15.0}, r.Preview)
	require.NotNil(t, r.MatchesSerial)
	assert.True(t, *r.MatchesSerial)
}

func TestRunEverySampleMatchesSerial(t *testing.T) {
	isolateEnv(t)
	for _, name := range library.SampleNames() {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, "run", name, "--size", "300", "--compare-serial")
			require.NoError(t, err)
			assert.Contains(t, out, "matches serial: yes")
		})
	}
}

func TestRunUnknownSample(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "run", "nope")
	require.ErrorIs(t, err, library.ErrUnknownSample)
}

func TestRunDisabledDevice(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "run", "saxpy", "--device", "serial", "--disable-device", "serial")
	require.Error(t, err)
}
