package device

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/measurement"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// Measure runs a single measurement and decodes the result page.
//
// The active spad map is read first so the result can be laid out on its
// grid. When an interrupt pin is configured Measure blocks on its falling
// edge before confirming the result in the interrupt register.
func (d *Device) Measure() (*measurement.Measurement, error) {
	spadMap, err := d.SpadMap()
	if err != nil {
		return nil, err
	}

	if err := d.bus.WriteReg(protocol.RegIntStatus, protocol.IntClearAll); err != nil {
		return nil, fmt.Errorf("clear interrupts: %w", err)
	}
	if err := d.armInterrupt(); err != nil {
		return nil, err
	}
	if err := d.Command(protocol.CmdMeasure); err != nil {
		return nil, fmt.Errorf("start measurement: %w", err)
	}
	if err := d.waitResult(); err != nil {
		return nil, err
	}

	data, err := bus.ReadChunked(d.bus, protocol.RegData, measurement.Size)
	if err != nil {
		return nil, fmt.Errorf("read result page: %w", err)
	}
	if err := d.bus.WriteReg(protocol.RegCommand, protocol.CmdStop); err != nil {
		return nil, fmt.Errorf("stop measurement: %w", err)
	}

	m, err := measurement.Decode(data, spadMap, d.layout)
	if err != nil {
		return nil, err
	}
	d.log.Debug("tmf882x: measurement", "result", m.ResultNumber, "valid", m.ValidResults, "spad_map", spadMap)
	return m, nil
}

// armInterrupt configures the interrupt pin on first use.
func (d *Device) armInterrupt() error {
	if d.irqPin == nil || d.irqReady {
		return nil
	}
	if err := d.irqPin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("gpio: failed to configure INT: %w", err)
	}
	d.irqReady = true
	return nil
}

// waitResult waits for the result-ready bit of the interrupt register.
func (d *Device) waitResult() error {
	if d.irqPin != nil {
		timeout := d.timing.PollDelay * time.Duration(d.timing.MeasureRetries)
		if !d.irqPin.WaitForEdge(timeout) {
			return fmt.Errorf("waiting for INT on %s: %w", d.irqPin, protocol.ErrTimeout)
		}
	}

	for attempt := 0; attempt < d.timing.MeasureRetries; attempt++ {
		v, err := d.bus.ReadReg(protocol.RegIntStatus)
		if err != nil {
			return fmt.Errorf("read interrupt status: %w", err)
		}
		if v&protocol.IntResultReady != 0 {
			return nil
		}
		d.sleep(d.timing.PollDelay)
	}
	return fmt.Errorf("waiting for result: %w", protocol.ErrTimeout)
}
