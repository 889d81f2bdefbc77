package measurement

import (
	"fmt"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// Calibration is factory calibration data. It is only valid together with
// the spad map it was captured with.
type Calibration struct {
	// SpadMap is the spad map active during calibration, 0 if unknown.
	SpadMap uint8
	Data    []byte
}

// NewCalibration validates raw calibration data.
func NewCalibration(data []byte, spadMap uint8) (*Calibration, error) {
	if len(data) != protocol.CalibDataSize {
		return nil, &protocol.CalibrationLengthError{Length: len(data)}
	}
	return &Calibration{SpadMap: spadMap, Data: append([]byte(nil), data...)}, nil
}

// DecodeCalibrationPage strips the page header from a calibration page read
// back from the data window.
func DecodeCalibrationPage(page []byte, spadMap uint8) (*Calibration, error) {
	if len(page) < protocol.CalibPageSize {
		return nil, &ShortBufferError{Got: len(page), Want: protocol.CalibPageSize}
	}
	return NewCalibration(page[protocol.CalibHeaderSize:protocol.CalibPageSize], spadMap)
}

// Matches reports whether the calibration may be used with spadMap.
// Untagged calibration data is accepted for any map.
func (c *Calibration) Matches(spadMap uint8) bool {
	return c.SpadMap == 0 || c.SpadMap == spadMap
}

func (c *Calibration) String() string {
	return fmt.Sprintf("calibration(spad map %d, %d bytes)", c.SpadMap, len(c.Data))
}
