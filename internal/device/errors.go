package device

import (
	"fmt"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// Address limits accepted by ChangeAddress.
const (
	MinAddress = 0x08
	MaxAddress = 0x7F
)

// InvalidAddressError is returned for a 7-bit address outside the usable range.
type InvalidAddressError struct {
	Address uint16
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid i2c address 0x%02X: must be within 0x%02X-0x%02X", e.Address, MinAddress, MaxAddress)
}

// SpadMapMismatchError is returned when calibration data recorded for one
// spad map is written while another map is active.
type SpadMapMismatchError struct {
	Calibration uint8
	Active      uint8
}

func (e *SpadMapMismatchError) Error() string {
	return fmt.Sprintf("calibration was recorded for spad map %d but spad map %d is active", e.Calibration, e.Active)
}

func (e *SpadMapMismatchError) Unwrap() error {
	return protocol.ErrSpadMapMismatch
}
