package protocol

import "fmt"

// DefaultAddress is the factory I2C address of the TMF882x.
const DefaultAddress uint16 = 0x41

// Register addresses.
const (
	RegAppID       = 0x00
	RegMinor       = 0x01
	RegCalibStatus = 0x07
	RegCommand     = 0x08 // write: command, read: status
	RegSerial      = 0x1C // 4 bytes, little-endian
	RegData        = 0x20 // data window, up to 192 bytes
	RegEnable      = 0xE0
	RegIntStatus   = 0xE1
)

// Configuration page registers, valid only while the page is loaded.
const (
	RegPeriod           = 0x24
	RegKiloIterations   = 0x26
	RegConfidence       = 0x30
	RegGPIO0            = 0x31
	RegGPIO1            = 0x32
	RegSpadMap          = 0x34
	RegI2CAddress       = 0x3B
	RegI2CAddressChange = 0x3E
)

// Calibration page layout.
const (
	RegCalibData    = 0x24 // calibration payload starts after the 4-byte header
	CalibPageSize   = 192
	CalibHeaderSize = 4
	CalibDataSize   = CalibPageSize - CalibHeaderSize
)

// Config page header expected after LOAD_CONFIG_PAGE.
const (
	ConfigHeaderSize = 4
	ConfigMarker2    = 0xBC
	ConfigMarker3    = 0x00
)

const (
	// IntClearAll clears every interrupt flag when written to RegIntStatus.
	IntClearAll = 0xFF
	// IntResultReady is set in RegIntStatus once a result page is available.
	IntResultReady = 0x02
)

// modeMask clears the two reserved bits (4 and 5) of RegEnable.
const modeMask = 0xCF

// Mode is the power state reported by RegEnable.
type Mode byte

const (
	ModeOff     Mode = 0x00
	ModeStandby Mode = 0x02
	ModeEnabled Mode = 0x41
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeStandby:
		return "standby"
	case ModeEnabled:
		return "enabled"
	default:
		return fmt.Sprintf("mode(0x%02X)", byte(m))
	}
}

// MaskMode strips the reserved bits from a raw RegEnable value.
func MaskMode(raw byte) byte {
	return raw & modeMask
}

// ModeFromRaw converts a raw RegEnable value into a Mode.
// Bits 4 and 5 are ignored.
func ModeFromRaw(raw byte) (Mode, error) {
	switch m := Mode(MaskMode(raw)); m {
	case ModeOff, ModeStandby, ModeEnabled:
		return m, nil
	default:
		return 0, &UnknownModeError{Raw: raw}
	}
}

// AppID identifies the program currently running on the device.
type AppID byte

const (
	AppApplication AppID = 0x03
	AppBootloader  AppID = 0x80
)

func (a AppID) String() string {
	switch a {
	case AppApplication:
		return "application"
	case AppBootloader:
		return "bootloader"
	default:
		return fmt.Sprintf("app(0x%02X)", byte(a))
	}
}

// Known reports whether a is one of the defined identities.
func (a AppID) Known() bool {
	return a == AppApplication || a == AppBootloader
}
