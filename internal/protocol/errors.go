package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a bounded poll never reaches its target state.
	ErrTimeout = errors.New("timeout")

	// ErrNotInBootloader is returned when firmware upload is attempted while
	// the device runs the application.
	ErrNotInBootloader = errors.New("device is not in bootloader")

	// ErrConfigurationLoadFailed is returned when the config page header
	// does not match after LOAD_CONFIG_PAGE.
	ErrConfigurationLoadFailed = errors.New("configuration not loaded as expected")

	// ErrConfigurationClosed is returned when a config page is used after End.
	ErrConfigurationClosed = errors.New("configuration page already committed")

	// ErrInvalidCalibrationLength is returned for calibration data of the wrong size.
	ErrInvalidCalibrationLength = errors.New("invalid calibration length")

	// ErrUnsupportedSpadMap is returned when a grid is requested for an
	// unknown spad map.
	ErrUnsupportedSpadMap = errors.New("unsupported spad map")

	// ErrSpadMapMismatch is returned when calibration data recorded for one
	// spad map is written while another is active.
	ErrSpadMapMismatch = errors.New("calibration spad map mismatch")

	// ErrNoFirmware is returned when the device needs firmware but none was configured.
	ErrNoFirmware = errors.New("no firmware image configured")
)

// CommandError is returned when the device reports a failure status for a command,
// or never finishes it.
type CommandError struct {
	Command byte
	Status  byte
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command %s (0x%02X): %v (last status 0x%02X)",
			CommandName(e.Command), e.Command, e.Err, e.Status)
	}
	return fmt.Sprintf("command %s (0x%02X) failed with status 0x%02X",
		CommandName(e.Command), e.Command, e.Status)
}

func (e *CommandError) Unwrap() error { return e.Err }

// BootloaderError indicates a non-zero bootloader status after a frame.
type BootloaderError struct {
	Command byte
	Status  byte
}

func (e *BootloaderError) Error() string {
	return fmt.Sprintf("bootloader error 0x%02X after %s",
		e.Status, BootloaderCommandName(e.Command))
}

// ModeTransitionError indicates the device never reached the requested mode.
type ModeTransitionError struct {
	Target   Mode
	Observed byte
}

func (e *ModeTransitionError) Error() string {
	return fmt.Sprintf("failed to set mode to %s: mode is 0x%02X", e.Target, e.Observed)
}

func (e *ModeTransitionError) Unwrap() error { return ErrTimeout }

// UnknownModeError indicates a RegEnable value outside the defined modes.
type UnknownModeError struct {
	Raw byte
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown device mode 0x%02X (masked 0x%02X)", e.Raw, MaskMode(e.Raw))
}

// CalibrationLengthError indicates calibration data of the wrong size.
type CalibrationLengthError struct {
	Length int
}

func (e *CalibrationLengthError) Error() string {
	return fmt.Sprintf("calibration data must be %d bytes long, got %d", CalibDataSize, e.Length)
}

func (e *CalibrationLengthError) Unwrap() error { return ErrInvalidCalibrationLength }

// UnsupportedSpadMapError indicates a spad map without a known grid geometry.
type UnsupportedSpadMapError struct {
	ID uint8
}

func (e *UnsupportedSpadMapError) Error() string {
	return fmt.Sprintf("result grid not implemented for spad map %d", e.ID)
}

func (e *UnsupportedSpadMapError) Unwrap() error { return ErrUnsupportedSpadMap }
