// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/bigbag/tmf882x/internal/device"
	"github.com/bigbag/tmf882x/internal/measurement"
)

// Validate checks configuration correctness.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	if cfg.Bus.Address < device.MinAddress || cfg.Bus.Address > device.MaxAddress {
		return fmt.Errorf(
			"bus.address 0x%02X out of range 0x%02X-0x%02X",
			cfg.Bus.Address,
			device.MinAddress,
			device.MaxAddress,
		)
	}
	if cfg.Bus.OpsPerSec < 0 {
		return fmt.Errorf("bus.ops_per_sec must not be negative")
	}

	// ------------------------------------------------------------
	// TIMING (zero keeps the driver default)
	// ------------------------------------------------------------

	if cfg.Timing.PollDelay < 0 {
		return fmt.Errorf("timing.poll_delay must not be negative")
	}
	retries := []struct {
		name  string
		value int
	}{
		{"mode_retries", cfg.Timing.ModeRetries},
		{"command_retries", cfg.Timing.CommandRetries},
		{"bootloader_retries", cfg.Timing.BootloaderRetries},
		{"measure_retries", cfg.Timing.MeasureRetries},
	}
	for _, r := range retries {
		if r.value < 0 {
			return fmt.Errorf("timing.%s must not be negative", r.name)
		}
	}

	// ------------------------------------------------------------
	// OUTPUT
	// ------------------------------------------------------------

	if _, err := cfg.Layout(); err != nil {
		return fmt.Errorf("output.layout: %w", err)
	}
	if _, err := cfg.Order(); err != nil {
		return fmt.Errorf("output.order: %w", err)
	}

	// ------------------------------------------------------------
	// GPIO
	// ------------------------------------------------------------

	if cfg.GPIO.Enable != "" && cfg.GPIO.Enable == cfg.GPIO.Interrupt {
		return fmt.Errorf("gpio.enable and gpio.interrupt both use pin %q", cfg.GPIO.Enable)
	}

	// ------------------------------------------------------------
	// SETTINGS (optional)
	// ------------------------------------------------------------

	if s := cfg.Settings; s != nil {
		if _, err := measurement.SpadMapDims(s.SpadMap); err != nil {
			return fmt.Errorf("settings.spad_map: %w", err)
		}
		if s.KiloIterations == 0 {
			return fmt.Errorf("settings.kilo_iterations must be positive")
		}
	}

	return nil
}
