package protocol

// Application commands, written to RegCommand.
const (
	CmdMeasure          = 0x10
	CmdWriteConfigPage  = 0x15
	CmdLoadConfigPage   = 0x16
	CmdLoadCalibration  = 0x19
	CmdCalibrate        = 0x20
	CmdI2CAddressChange = 0x21
	CmdStop             = 0xFF
)

// Bootloader commands, sent framed as raw writes prefixed with RegCommand.
const (
	BlCmdRAMRemapReset = 0x11
	BlCmdDownloadInit  = 0x14
	BlCmdWriteRAM      = 0x41
	BlCmdSetAddr       = 0x43
)

// Power mode requests written to RegEnable.
const (
	EnableWakeBootloader = 0x20
	EnableWakeApp        = 0x21
)

// Command status values read back from RegCommand.
const (
	StatusOK       = 0x00
	StatusAccepted = 0x01
	// Values at or above StatusBusy mean the command is still executing.
	StatusBusy = 0x10
)

// Bootloader status values.
const (
	BlStatusReady = 0x00
)

// Fixed payloads and sizes.
const (
	DownloadInitSeed = 0x29
	// MaxFramePayload is the largest WRITE_RAM payload the bootloader accepts.
	MaxFramePayload = 80
	// MaxBlockSize is the largest single block transfer on the bus.
	MaxBlockSize = 32
)

// CommandName returns a human-readable name for an application command.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdMeasure:
		return "MEASURE"
	case CmdWriteConfigPage:
		return "WRITE_CONFIG_PAGE"
	case CmdLoadConfigPage:
		return "LOAD_CONFIG_PAGE"
	case CmdLoadCalibration:
		return "LOAD_CALIBRATION_PAGE"
	case CmdCalibrate:
		return "CALIBRATE"
	case CmdI2CAddressChange:
		return "I2C_ADDRESS_CHANGE"
	case CmdStop:
		return "STOP"
	default:
		return "unknown command"
	}
}

// BootloaderCommandName returns a human-readable name for a bootloader command.
func BootloaderCommandName(cmd byte) string {
	switch cmd {
	case BlCmdRAMRemapReset:
		return "RAMREMAP_RESET"
	case BlCmdDownloadInit:
		return "DOWNLOAD_INIT"
	case BlCmdWriteRAM:
		return "W_RAM"
	case BlCmdSetAddr:
		return "SET_ADDR"
	default:
		return "unknown bootloader command"
	}
}
