package device

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/bigbag/tmf882x/internal/flasher"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// Mode reads the current power mode.
func (d *Device) Mode() (protocol.Mode, error) {
	raw, err := d.bus.ReadReg(protocol.RegEnable)
	if err != nil {
		return 0, fmt.Errorf("read mode: %w", err)
	}
	return protocol.ModeFromRaw(raw)
}

// Enable wakes the device into the application. When the device comes up
// in the bootloader and autoLoadFirmware is set, the configured firmware
// image is uploaded. Without it the device stays in the bootloader and
// cannot measure.
func (d *Device) Enable(autoLoadFirmware bool) error {
	if d.enPin != nil {
		if err := d.enPin.Out(gpio.High); err != nil {
			return fmt.Errorf("gpio: failed to raise EN: %w", err)
		}
		d.sleep(enableSettle)
	}

	if err := d.bus.WriteReg(protocol.RegEnable, protocol.EnableWakeApp); err != nil {
		return fmt.Errorf("write enable: %w", err)
	}
	if err := d.waitMode(protocol.ModeEnabled); err != nil {
		return err
	}

	appID, err := d.AppID()
	if err != nil {
		return err
	}
	if appID != protocol.AppBootloader {
		return nil
	}
	if !autoLoadFirmware {
		d.log.Warn("tmf882x: device is in bootloader, firmware not loaded")
		return nil
	}
	return d.LoadFirmware()
}

// Standby puts the device into standby.
func (d *Device) Standby() error {
	if err := d.bus.WriteReg(protocol.RegEnable, protocol.EnableWakeBootloader); err != nil {
		return fmt.Errorf("write enable: %w", err)
	}
	return d.waitMode(protocol.ModeStandby)
}

// PowerOff drops the EN line. It is a no-op without an enable pin.
func (d *Device) PowerOff() error {
	if d.enPin == nil {
		return nil
	}
	if err := d.enPin.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpio: failed to lower EN: %w", err)
	}
	return nil
}

// waitMode polls the mode register until it reports target.
func (d *Device) waitMode(target protocol.Mode) error {
	var raw byte
	for attempt := 0; attempt < d.timing.ModeRetries; attempt++ {
		v, err := d.bus.ReadReg(protocol.RegEnable)
		if err != nil {
			return fmt.Errorf("read mode: %w", err)
		}
		raw = v
		if protocol.Mode(protocol.MaskMode(raw)) == target {
			return nil
		}
		d.sleep(d.timing.PollDelay)
	}
	return &protocol.ModeTransitionError{Target: target, Observed: protocol.MaskMode(raw)}
}

// LoadFirmware uploads the configured firmware image into the bootloader.
func (d *Device) LoadFirmware() error {
	if d.firmware == nil {
		return protocol.ErrNoFirmware
	}

	f := flasher.New(d.bus,
		flasher.WithRetries(d.timing.BootloaderRetries),
		flasher.WithPollDelay(d.timing.PollDelay),
		flasher.WithSleep(d.sleep),
		flasher.WithLogger(d.log),
	)
	f.SetProgressCallback(d.progress)

	d.log.Info("tmf882x: loading firmware", "image", d.firmware.Name, "bytes", d.firmware.Size())
	if err := f.Upload(d.firmware); err != nil {
		return fmt.Errorf("firmware upload failed: %w", err)
	}

	appID, err := d.AppID()
	if err != nil {
		return err
	}
	if appID != protocol.AppApplication {
		d.log.Warn("tmf882x: device did not start the application after upload", "app", appID)
	}
	return nil
}
