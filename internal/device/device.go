// Package device drives a TMF882x time-of-flight sensor: power states,
// firmware download, the command/status handshake, configuration pages,
// measurements and factory calibration.
//
// A Device is not safe for concurrent use. The bus and the device's command
// state are single-owner; callers sharing a Device must serialize access.
package device

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/firmware"
	"github.com/bigbag/tmf882x/internal/flasher"
	"github.com/bigbag/tmf882x/internal/measurement"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// Timing holds the poll delay and retry ceilings of every polling loop.
type Timing struct {
	// PollDelay is the constant delay between two polls.
	PollDelay time.Duration
	// ModeRetries bounds the power mode poll in Enable and Standby.
	ModeRetries int
	// CommandRetries bounds the command status poll.
	CommandRetries int
	// BootloaderRetries bounds the bootloader status poll after each frame.
	BootloaderRetries int
	// MeasureRetries bounds the wait for a result page.
	MeasureRetries int
}

// DefaultTiming returns the timing used when none is configured.
func DefaultTiming() Timing {
	return Timing{
		PollDelay:         time.Millisecond,
		ModeRetries:       100,
		CommandRetries:    10000,
		BootloaderRetries: flasher.DefaultRetries,
		MeasureRetries:    5000,
	}
}

// enableSettle is the wait after raising the EN line before the device
// answers on the bus.
const enableSettle = 2 * time.Millisecond

// Device is a TMF882x on a bus.
type Device struct {
	bus      bus.Bus
	timing   Timing
	firmware *firmware.Image
	progress flasher.ProgressCallback
	layout   measurement.Layout

	enPin    gpio.PinOut
	irqPin   gpio.PinIn
	irqReady bool

	sleep func(time.Duration)
	log   *slog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithTiming replaces the default poll delay and retry ceilings. Zero fields
// keep their defaults.
func WithTiming(t Timing) Option {
	return func(d *Device) {
		if t.PollDelay > 0 {
			d.timing.PollDelay = t.PollDelay
		}
		if t.ModeRetries > 0 {
			d.timing.ModeRetries = t.ModeRetries
		}
		if t.CommandRetries > 0 {
			d.timing.CommandRetries = t.CommandRetries
		}
		if t.BootloaderRetries > 0 {
			d.timing.BootloaderRetries = t.BootloaderRetries
		}
		if t.MeasureRetries > 0 {
			d.timing.MeasureRetries = t.MeasureRetries
		}
	}
}

// WithFirmware sets the image loaded when the device boots into the bootloader.
func WithFirmware(img *firmware.Image) Option {
	return func(d *Device) {
		d.firmware = img
	}
}

// WithProgress sets a callback reporting firmware upload progress.
func WithProgress(cb flasher.ProgressCallback) Option {
	return func(d *Device) {
		d.progress = cb
	}
}

// WithLayout selects how result pages are decoded.
func WithLayout(l measurement.Layout) Option {
	return func(d *Device) {
		d.layout = l
	}
}

// WithEnablePin sets the GPIO driving the device EN input.
func WithEnablePin(p gpio.PinOut) Option {
	return func(d *Device) {
		d.enPin = p
	}
}

// WithInterruptPin sets the GPIO connected to the active-low INT output.
func WithInterruptPin(p gpio.PinIn) Option {
	return func(d *Device) {
		d.irqPin = p
	}
}

// WithSleep replaces time.Sleep for every wait.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Device) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// New returns a Device talking over b.
func New(b bus.Bus, opts ...Option) *Device {
	d := &Device{
		bus:    b,
		timing: DefaultTiming(),
		layout: measurement.LayoutPaired,
		sleep:  time.Sleep,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Timing returns the effective timing.
func (d *Device) Timing() Timing {
	return d.timing
}

// AppID reads which program the device is running.
func (d *Device) AppID() (protocol.AppID, error) {
	v, err := d.bus.ReadReg(protocol.RegAppID)
	if err != nil {
		return 0, fmt.Errorf("read app id: %w", err)
	}
	return protocol.AppID(v), nil
}

// Minor reads the application minor version.
func (d *Device) Minor() (byte, error) {
	v, err := d.bus.ReadReg(protocol.RegMinor)
	if err != nil {
		return 0, fmt.Errorf("read minor version: %w", err)
	}
	return v, nil
}

// SerialNumber reads the 32-bit serial number.
func (d *Device) SerialNumber() (uint32, error) {
	buf := make([]byte, 4)
	if err := d.bus.ReadBlock(protocol.RegSerial, buf); err != nil {
		return 0, fmt.Errorf("read serial number: %w", err)
	}
	return binary.LittleEndian.Uint32(buf), nil
}
