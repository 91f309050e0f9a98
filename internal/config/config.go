package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/tracker"
)

const (
	defaultListenAddr    = ":8080"
	defaultDBPath        = "viskores.db"
	defaultTraceExporter = "none"

	envConfigFile      = "VISKORES_CONFIG"
	envListenAddr      = "VISKORES_LISTEN_ADDR"
	envDBPath          = "VISKORES_DB_PATH"
	envLogLevel        = "VISKORES_LOG_LEVEL"
	envDevice          = "VISKORES_DEVICE"
	envDisabledDevices = "VISKORES_DISABLED_DEVICES"
	envThreads         = "VISKORES_THREADS"
	envLanes           = "VISKORES_LANES"
	envGridUnits       = "VISKORES_GRID_UNITS"
	envBlockSize       = "VISKORES_BLOCK_SIZE"
	envDeviceMemoryMB  = "VISKORES_DEVICE_MEMORY_MB"
	envTraceExporter   = "VISKORES_TRACE_EXPORTER"
)

// Config holds application configuration loaded from an optional YAML file
// and environment variables. Environment variables win.
type Config struct {
	ListenAddr      string     `yaml:"listen_addr"`
	DBPath          string     `yaml:"db_path"`
	LogLevel        slog.Level `yaml:"-"`
	Device          string     `yaml:"device"`
	DisabledDevices []string   `yaml:"disabled_devices"`
	Threads         int        `yaml:"threads"`
	Lanes           int        `yaml:"lanes"`
	GridUnits       int        `yaml:"grid_units"`
	BlockSize       int        `yaml:"block_size"`
	DeviceMemoryMB  int        `yaml:"device_memory_mb"`
	TraceExporter   string     `yaml:"trace_exporter"`

	// RawLogLevel is the level as written in the file.
	RawLogLevel string `yaml:"log_level"`
}

// Load reads configuration with sensible defaults. A file named by
// VISKORES_CONFIG is read first when set.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:    defaultListenAddr,
		DBPath:        defaultDBPath,
		LogLevel:      slog.LevelInfo,
		TraceExporter: defaultTraceExporter,
	}

	if path := os.Getenv(envConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envDevice); v != "" {
		cfg.Device = v
	}
	if v := os.Getenv(envDisabledDevices); v != "" {
		cfg.DisabledDevices = splitList(v)
	}
	if v := os.Getenv(envTraceExporter); v != "" {
		cfg.TraceExporter = v
	}

	ints := []struct {
		env string
		dst *int
	}{
		{envThreads, &cfg.Threads},
		{envLanes, &cfg.Lanes},
		{envGridUnits, &cfg.GridUnits},
		{envBlockSize, &cfg.BlockSize},
		{envDeviceMemoryMB, &cfg.DeviceMemoryMB},
	}
	for _, it := range ints {
		v := os.Getenv(it.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", it.env, err)
		}
		*it.dst = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if c.RawLogLevel != "" {
		c.LogLevel = parseLogLevel(c.RawLogLevel)
	}
	return nil
}

// Validate checks device names and that no count is negative, except
// GridUnits, which may be negative to declare no accelerator.
func (c Config) Validate() error {
	if c.Device != "" {
		if _, err := device.ParseID(c.Device); err != nil {
			return fmt.Errorf("device: %w", err)
		}
	}
	for _, name := range c.DisabledDevices {
		id, err := device.ParseID(name)
		if err != nil {
			return fmt.Errorf("disabled device: %w", err)
		}
		if !id.Valid() {
			return fmt.Errorf("disabled device: %w: %s", device.ErrUnknown, name)
		}
	}
	if c.Threads < 0 || c.Lanes < 0 || c.BlockSize < 0 || c.DeviceMemoryMB < 0 {
		return errors.New("threads, lanes, block size and device memory must not be negative")
	}
	return nil
}

// DeviceID returns the configured device, or device.Any when unset.
func (c Config) DeviceID() device.ID {
	if c.Device == "" {
		return device.Any
	}
	id, err := device.ParseID(c.Device)
	if err != nil {
		return device.Any
	}
	return id
}

// TrackerOptions converts the backend settings into tracker options.
func (c Config) TrackerOptions() tracker.Options {
	return tracker.Options{
		Threads:     c.Threads,
		Lanes:       c.Lanes,
		GridUnits:   c.GridUnits,
		BlockSize:   c.BlockSize,
		MemoryLimit: int64(c.DeviceMemoryMB) << 20,
	}
}

// ApplyDevices disables and forces devices on t as configured.
func (c Config) ApplyDevices(t *tracker.Tracker) error {
	for _, name := range c.DisabledDevices {
		id, err := device.ParseID(name)
		if err != nil {
			return err
		}
		t.Disable(id, "disabled by configuration")
	}
	if id := c.DeviceID(); id != device.Any {
		if err := t.Force(id); err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
