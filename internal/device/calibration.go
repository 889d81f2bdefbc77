package device

import (
	"fmt"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/measurement"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// CalibrationKiloIterations is the iteration count used during factory calibration.
const CalibrationKiloIterations = 4000

// Calibrate runs factory calibration and returns the resulting data. The
// device must be in a dark environment with no target within 40 cm. The
// kilo-iterations setting is restored afterwards.
func (d *Device) Calibrate() (*measurement.Calibration, error) {
	var iterations uint16
	var spadMap uint8
	err := d.WithConfiguration(func(p *ConfigPage) error {
		v, err := p.Get(FieldKiloIterations)
		if err != nil {
			return err
		}
		iterations = v
		v, err = p.Get(FieldSpadMap)
		if err != nil {
			return err
		}
		spadMap = uint8(v)
		return p.Set(FieldKiloIterations, CalibrationKiloIterations)
	})
	if err != nil {
		return nil, err
	}

	d.log.Info("tmf882x: calibrating", "spad_map", spadMap)
	if err := d.Command(protocol.CmdCalibrate); err != nil {
		return nil, fmt.Errorf("calibrate: %w", err)
	}
	if err := d.Command(protocol.CmdLoadCalibration); err != nil {
		return nil, fmt.Errorf("load calibration page: %w", err)
	}
	page, err := bus.ReadChunked(d.bus, protocol.RegData, protocol.CalibPageSize)
	if err != nil {
		return nil, fmt.Errorf("read calibration page: %w", err)
	}
	if err := d.Command(protocol.CmdWriteConfigPage); err != nil {
		return nil, fmt.Errorf("close calibration page: %w", err)
	}

	if err := d.SetKiloIterations(iterations); err != nil {
		return nil, fmt.Errorf("restore kilo iterations: %w", err)
	}
	return measurement.DecodeCalibrationPage(page, spadMap)
}

// WriteCalibration loads calibration data into the device. Data tagged with
// a spad map is rejected when a different map is active.
func (d *Device) WriteCalibration(c *measurement.Calibration) error {
	if c == nil {
		return &protocol.CalibrationLengthError{Length: 0}
	}
	if len(c.Data) != protocol.CalibDataSize {
		return &protocol.CalibrationLengthError{Length: len(c.Data)}
	}
	if c.SpadMap != 0 {
		active, err := d.SpadMap()
		if err != nil {
			return err
		}
		if !c.Matches(active) {
			return &SpadMapMismatchError{Calibration: c.SpadMap, Active: active}
		}
	}

	if err := d.Command(protocol.CmdLoadCalibration); err != nil {
		return fmt.Errorf("load calibration page: %w", err)
	}
	if err := bus.WriteChunked(d.bus, protocol.RegCalibData, c.Data); err != nil {
		return fmt.Errorf("write calibration data: %w", err)
	}
	if err := d.Command(protocol.CmdWriteConfigPage); err != nil {
		return fmt.Errorf("commit calibration page: %w", err)
	}
	return nil
}

// WriteCalibrationData loads raw, untagged calibration data.
func (d *Device) WriteCalibrationData(data []byte) error {
	return d.WriteCalibration(&measurement.Calibration{Data: data})
}

// CalibrationOK reports whether the device accepted its calibration.
func (d *Device) CalibrationOK() (bool, error) {
	v, err := d.bus.ReadReg(protocol.RegCalibStatus)
	if err != nil {
		return false, fmt.Errorf("read calibration status: %w", err)
	}
	return v == 0, nil
}
