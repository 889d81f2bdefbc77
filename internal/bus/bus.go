// Package bus provides the register-level transport used to talk to the
// TMF882x. It defines the Bus interface, a periph.io I2C implementation and an
// in-memory Mock used by tests.
package bus

import (
	"fmt"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// Bus is a register-addressed two-wire bus bound to a single device.
type Bus interface {
	// ReadReg reads a single byte register.
	ReadReg(reg byte) (byte, error)

	// WriteReg writes a single byte register.
	WriteReg(reg, val byte) error

	// ReadWord reads a little-endian 16-bit register pair.
	ReadWord(reg byte) (uint16, error)

	// WriteWord writes a little-endian 16-bit register pair.
	WriteWord(reg byte, val uint16) error

	// ReadBlock reads len(buf) bytes starting at reg. len(buf) must not
	// exceed protocol.MaxBlockSize.
	ReadBlock(reg byte, buf []byte) error

	// WriteBlock writes data starting at reg. len(data) must not exceed
	// protocol.MaxBlockSize.
	WriteBlock(reg byte, data []byte) error

	// Write performs a raw write transaction.
	Write(p []byte) error

	// Read performs a raw read transaction.
	Read(p []byte) error
}

// Addresser is implemented by buses whose device address can be changed
// after the device has been re-addressed.
type Addresser interface {
	Address() uint16
	SetAddress(addr uint16)
}

// ReadChunked reads size bytes starting at reg, split into sequential
// block reads of at most protocol.MaxBlockSize bytes. Each chunk starts at the
// register following the previous one.
func ReadChunked(b Bus, reg byte, size int) ([]byte, error) {
	if int(reg)+size > 0x100 {
		return nil, fmt.Errorf("read of %d bytes at 0x%02X exceeds register space", size, reg)
	}
	result := make([]byte, size)
	for off := 0; off < size; off += protocol.MaxBlockSize {
		end := off + protocol.MaxBlockSize
		if end > size {
			end = size
		}
		if err := b.ReadBlock(reg+byte(off), result[off:end]); err != nil {
			return nil, fmt.Errorf("block read at 0x%02X: %w", int(reg)+off, err)
		}
	}
	return result, nil
}

// WriteChunked writes data starting at reg, split into sequential block
// writes of at most protocol.MaxBlockSize bytes.
func WriteChunked(b Bus, reg byte, data []byte) error {
	if int(reg)+len(data) > 0x100 {
		return fmt.Errorf("write of %d bytes at 0x%02X exceeds register space", len(data), reg)
	}
	for off := 0; off < len(data); off += protocol.MaxBlockSize {
		end := off + protocol.MaxBlockSize
		if end > len(data) {
			end = len(data)
		}
		if err := b.WriteBlock(reg+byte(off), data[off:end]); err != nil {
			return fmt.Errorf("block write at 0x%02X: %w", int(reg)+off, err)
		}
	}
	return nil
}
