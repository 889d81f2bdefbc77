// internal/config/validate_test.go
package config

import (
	"strings"
	"testing"

	"github.com/bigbag/tmf882x/internal/device"
)

// ---- tests ----

func TestValidate_Default(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"address too low", func(c *Config) { c.Bus.Address = 0x07 }, "bus.address"},
		{"address too high", func(c *Config) { c.Bus.Address = 0x80 }, "bus.address"},
		{"negative rate", func(c *Config) { c.Bus.OpsPerSec = -1 }, "ops_per_sec"},
		{"negative poll delay", func(c *Config) { c.Timing.PollDelay = -1 }, "poll_delay"},
		{"negative retries", func(c *Config) { c.Timing.MeasureRetries = -5 }, "measure_retries"},
		{"bad layout", func(c *Config) { c.Output.Layout = "zigzag" }, "output.layout"},
		{"bad order", func(c *Config) { c.Output.Order = "diagonal" }, "output.order"},
		{"shared pin", func(c *Config) { c.GPIO.Enable, c.GPIO.Interrupt = "GPIO17", "GPIO17" }, "gpio"},
		{
			"unsupported spad map",
			func(c *Config) { c.Settings = &device.Settings{SpadMap: 15, KiloIterations: 550} },
			"settings.spad_map",
		},
		{
			"zero iterations",
			func(c *Config) { c.Settings = &device.Settings{SpadMap: 1} },
			"kilo_iterations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ZeroRetriesKeepDefaults(t *testing.T) {
	cfg := Default()
	cfg.Timing = TimingConfig{}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Settings(t *testing.T) {
	cfg := Default()
	cfg.Settings = &device.Settings{SpadMap: 7, KiloIterations: 550, MeasurementPeriod: 33}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
