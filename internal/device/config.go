package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// Field is a configuration page field.
type Field struct {
	Name string
	Reg  byte
	// Word fields are 16-bit little-endian, the rest are single bytes.
	Word bool
}

func (f Field) String() string {
	return f.Name
}

// Configuration page fields.
var (
	FieldMeasurementPeriod   = Field{Name: "period", Reg: protocol.RegPeriod, Word: true}
	FieldKiloIterations      = Field{Name: "kilo_iterations", Reg: protocol.RegKiloIterations, Word: true}
	FieldConfidenceThreshold = Field{Name: "confidence_threshold", Reg: protocol.RegConfidence}
	FieldGPIO0               = Field{Name: "gpio0", Reg: protocol.RegGPIO0}
	FieldGPIO1               = Field{Name: "gpio1", Reg: protocol.RegGPIO1}
	FieldSpadMap             = Field{Name: "spad_map", Reg: protocol.RegSpadMap}
	FieldI2CAddress          = Field{Name: "i2c_address", Reg: protocol.RegI2CAddress}
	FieldI2CAddressChange    = Field{Name: "i2c_address_change", Reg: protocol.RegI2CAddressChange}
)

// Fields lists every configuration page field.
var Fields = []Field{
	FieldMeasurementPeriod,
	FieldKiloIterations,
	FieldConfidenceThreshold,
	FieldGPIO0,
	FieldGPIO1,
	FieldSpadMap,
	FieldI2CAddress,
	FieldI2CAddressChange,
}

// FieldByName looks up a field by name, ignoring case.
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// ConfigPage is an open configuration transaction. Fields can only be read
// or written through a ConfigPage, between BeginConfiguration and End.
type ConfigPage struct {
	d    *Device
	done bool
}

// BeginConfiguration loads the configuration page and validates its header.
func (d *Device) BeginConfiguration() (*ConfigPage, error) {
	if err := d.Command(protocol.CmdLoadConfigPage); err != nil {
		return nil, fmt.Errorf("load config page: %w", err)
	}

	hdr := make([]byte, protocol.ConfigHeaderSize)
	if err := d.bus.ReadBlock(protocol.RegData, hdr); err != nil {
		return nil, fmt.Errorf("read config header: %w", err)
	}
	if hdr[0] != protocol.CmdLoadConfigPage || hdr[2] != protocol.ConfigMarker2 || hdr[3] != protocol.ConfigMarker3 {
		return nil, fmt.Errorf("%w: header % X", protocol.ErrConfigurationLoadFailed, hdr)
	}
	return &ConfigPage{d: d}, nil
}

// End commits the page. It is called exactly once per transaction.
func (p *ConfigPage) End() error {
	if p.done {
		return protocol.ErrConfigurationClosed
	}
	p.done = true
	if err := p.d.Command(protocol.CmdWriteConfigPage); err != nil {
		return fmt.Errorf("write config page: %w", err)
	}
	return nil
}

// Get reads a field.
func (p *ConfigPage) Get(f Field) (uint16, error) {
	if p.done {
		return 0, protocol.ErrConfigurationClosed
	}
	if f.Word {
		v, err := p.d.bus.ReadWord(f.Reg)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", f, err)
		}
		return v, nil
	}
	v, err := p.d.bus.ReadReg(f.Reg)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", f, err)
	}
	return uint16(v), nil
}

// Set writes a field.
func (p *ConfigPage) Set(f Field, v uint16) error {
	if p.done {
		return protocol.ErrConfigurationClosed
	}
	if f.Word {
		if err := p.d.bus.WriteWord(f.Reg, v); err != nil {
			return fmt.Errorf("write %s: %w", f, err)
		}
		return nil
	}
	if v > 0xFF {
		return fmt.Errorf("%s: value %d does not fit in a byte", f, v)
	}
	if err := p.d.bus.WriteReg(f.Reg, byte(v)); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

// WithConfiguration runs fn inside a configuration transaction. The page is
// committed whether or not fn succeeds, and the errors of both are joined.
func (d *Device) WithConfiguration(fn func(p *ConfigPage) error) (err error) {
	p, err := d.BeginConfiguration()
	if err != nil {
		return err
	}
	defer func() {
		if !p.done {
			err = errors.Join(err, p.End())
		}
	}()
	return fn(p)
}

// ReadField reads a single field in its own transaction.
func (d *Device) ReadField(f Field) (uint16, error) {
	var v uint16
	err := d.WithConfiguration(func(p *ConfigPage) error {
		var err error
		v, err = p.Get(f)
		return err
	})
	return v, err
}

// WriteField writes a single field in its own transaction.
func (d *Device) WriteField(f Field, v uint16) error {
	return d.WithConfiguration(func(p *ConfigPage) error {
		return p.Set(f, v)
	})
}

// MeasurementPeriod returns the measurement period in milliseconds.
func (d *Device) MeasurementPeriod() (uint16, error) {
	return d.ReadField(FieldMeasurementPeriod)
}

// SetMeasurementPeriod sets the measurement period in milliseconds.
func (d *Device) SetMeasurementPeriod(ms uint16) error {
	return d.WriteField(FieldMeasurementPeriod, ms)
}

// KiloIterations returns the number of kilo-iterations per measurement.
func (d *Device) KiloIterations() (uint16, error) {
	return d.ReadField(FieldKiloIterations)
}

func (d *Device) SetKiloIterations(n uint16) error {
	return d.WriteField(FieldKiloIterations, n)
}

// ConfidenceThreshold returns the minimum confidence of a reported echo.
func (d *Device) ConfidenceThreshold() (uint8, error) {
	v, err := d.ReadField(FieldConfidenceThreshold)
	return uint8(v), err
}

func (d *Device) SetConfidenceThreshold(v uint8) error {
	return d.WriteField(FieldConfidenceThreshold, uint16(v))
}

// SpadMap returns the active spad map id.
func (d *Device) SpadMap() (uint8, error) {
	v, err := d.ReadField(FieldSpadMap)
	return uint8(v), err
}

func (d *Device) SetSpadMap(id uint8) error {
	return d.WriteField(FieldSpadMap, uint16(id))
}

// Settings is a snapshot of the user-facing configuration fields.
type Settings struct {
	MeasurementPeriod   uint16 `yaml:"period"`
	KiloIterations      uint16 `yaml:"kilo_iterations"`
	ConfidenceThreshold uint8  `yaml:"confidence_threshold"`
	SpadMap             uint8  `yaml:"spad_map"`
	GPIO0               uint8  `yaml:"gpio0"`
	GPIO1               uint8  `yaml:"gpio1"`
}

// ReadSettings reads all user-facing fields in one transaction.
func (d *Device) ReadSettings() (Settings, error) {
	var s Settings
	err := d.WithConfiguration(func(p *ConfigPage) error {
		vals := make(map[Field]uint16)
		for _, f := range []Field{
			FieldMeasurementPeriod, FieldKiloIterations, FieldConfidenceThreshold,
			FieldSpadMap, FieldGPIO0, FieldGPIO1,
		} {
			v, err := p.Get(f)
			if err != nil {
				return err
			}
			vals[f] = v
		}
		s = Settings{
			MeasurementPeriod:   vals[FieldMeasurementPeriod],
			KiloIterations:      vals[FieldKiloIterations],
			ConfidenceThreshold: uint8(vals[FieldConfidenceThreshold]),
			SpadMap:             uint8(vals[FieldSpadMap]),
			GPIO0:               uint8(vals[FieldGPIO0]),
			GPIO1:               uint8(vals[FieldGPIO1]),
		}
		return nil
	})
	return s, err
}

// ApplySettings writes all user-facing fields in one transaction. The
// spad map is written before the fields that depend on it.
func (d *Device) ApplySettings(s Settings) error {
	return d.WithConfiguration(func(p *ConfigPage) error {
		writes := []struct {
			f Field
			v uint16
		}{
			{FieldSpadMap, uint16(s.SpadMap)},
			{FieldMeasurementPeriod, s.MeasurementPeriod},
			{FieldKiloIterations, s.KiloIterations},
			{FieldConfidenceThreshold, uint16(s.ConfidenceThreshold)},
			{FieldGPIO0, uint16(s.GPIO0)},
			{FieldGPIO1, uint16(s.GPIO1)},
		}
		for _, w := range writes {
			if err := p.Set(w.f, w.v); err != nil {
				return err
			}
		}
		return nil
	})
}
