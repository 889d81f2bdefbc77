// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/device"
	"github.com/bigbag/tmf882x/internal/measurement"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "tmf882x.yaml"

type Config struct {
	Bus    BusConfig    `yaml:"bus"`
	Device DeviceConfig `yaml:"device"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	Timing TimingConfig `yaml:"timing"`
	Output OutputConfig `yaml:"output"`

	// Settings, when present, are applied after the device is enabled.
	Settings *device.Settings `yaml:"settings"`
}

// ---- BUS ----

type BusConfig struct {
	Name      string `yaml:"name"` // empty selects the first registered bus
	Address   uint16 `yaml:"address"`
	OpsPerSec int    `yaml:"ops_per_sec"` // 0 disables throttling
}

// ---- DEVICE ----

type DeviceConfig struct {
	Firmware    string `yaml:"firmware"`    // image uploaded from the bootloader
	Calibration string `yaml:"calibration"` // loaded after enable when set
}

// ---- GPIO ----

type GPIOConfig struct {
	Enable    string `yaml:"enable"`    // periph pin name driving EN
	Interrupt string `yaml:"interrupt"` // periph pin name wired to INT
}

// ---- TIMING ----

type TimingConfig struct {
	PollDelay         time.Duration `yaml:"poll_delay"`
	ModeRetries       int           `yaml:"mode_retries"`
	CommandRetries    int           `yaml:"command_retries"`
	BootloaderRetries int           `yaml:"bootloader_retries"`
	MeasureRetries    int           `yaml:"measure_retries"`
}

// ---- OUTPUT ----

type OutputConfig struct {
	Layout string `yaml:"layout"` // paired | flat
	Order  string `yaml:"order"`  // row | column
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	t := device.DefaultTiming()
	return &Config{
		Bus: BusConfig{
			Address:   protocol.DefaultAddress,
			OpsPerSec: bus.DefaultOpsPerSec,
		},
		Timing: TimingConfig{
			PollDelay:         t.PollDelay,
			ModeRetries:       t.ModeRetries,
			CommandRetries:    t.CommandRetries,
			BootloaderRetries: t.BootloaderRetries,
			MeasureRetries:    t.MeasureRetries,
		},
		Output: OutputConfig{
			Layout: measurement.LayoutPaired.String(),
			Order:  measurement.RowMajor.String(),
		},
	}
}

// Load reads path over the defaults and validates the result. A missing
// file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// DeviceTiming converts the timing section.
func (c *Config) DeviceTiming() device.Timing {
	return device.Timing{
		PollDelay:         c.Timing.PollDelay,
		ModeRetries:       c.Timing.ModeRetries,
		CommandRetries:    c.Timing.CommandRetries,
		BootloaderRetries: c.Timing.BootloaderRetries,
		MeasureRetries:    c.Timing.MeasureRetries,
	}
}

// Layout returns the configured result layout.
func (c *Config) Layout() (measurement.Layout, error) {
	return measurement.ParseLayout(c.Output.Layout)
}

// Order returns the configured grid order.
func (c *Config) Order() (measurement.GridOrder, error) {
	return measurement.ParseGridOrder(c.Output.Order)
}
