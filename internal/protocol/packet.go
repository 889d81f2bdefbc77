package protocol

import (
	"fmt"
)

// Frame is a bootloader command frame.
type Frame struct {
	Command  byte
	Data     []byte
	Checksum byte
}

// BootloaderStatus is the 3-byte record returned when the bootloader
// status register is read.
type BootloaderStatus struct {
	Status   byte
	Size     byte
	Checksum byte
}

// BootloaderStatusSize is the length of a raw BootloaderStatus record.
const BootloaderStatusSize = 3

// NewFrame creates a new frame with calculated checksum.
func NewFrame(cmd byte, data []byte) (*Frame, error) {
	if len(data) > MaxFramePayload {
		return nil, fmt.Errorf("frame payload too long: %d bytes (max %d)", len(data), MaxFramePayload)
	}
	f := &Frame{
		Command: cmd,
		Data:    data,
	}
	f.Checksum = f.calculateChecksum()
	return f, nil
}

// calculateChecksum computes the one's complement of the low byte of the
// sum of command, length and payload bytes.
func (f *Frame) calculateChecksum() byte {
	sum := uint(f.Command) + uint(len(f.Data))
	for _, b := range f.Data {
		sum += uint(b)
	}
	return byte(sum&0xFF) ^ 0xFF
}

// Encode serializes the frame to bytes.
func (f *Frame) Encode() []byte {
	// Frame format:
	// 0: command
	// 1: payload length
	// 2..n+1: payload
	// n+2: checksum
	packet := make([]byte, 0, len(f.Data)+3)
	packet = append(packet, f.Command, byte(len(f.Data)))
	packet = append(packet, f.Data...)
	packet = append(packet, f.Checksum)
	return packet
}

// Transaction returns the raw bus write for the frame: the command
// register address followed by the encoded frame.
func (f *Frame) Transaction() []byte {
	return append([]byte{RegCommand}, f.Encode()...)
}

// DecodeBootloaderStatus parses a raw status record.
func DecodeBootloaderStatus(data []byte) (*BootloaderStatus, error) {
	if len(data) < BootloaderStatusSize {
		return nil, fmt.Errorf("bootloader status too short: %d bytes", len(data))
	}
	return &BootloaderStatus{
		Status:   data[0],
		Size:     data[1],
		Checksum: data[2],
	}, nil
}

// IsReady returns true if the bootloader accepted the last frame.
func (s *BootloaderStatus) IsReady() bool {
	return s.Status == BlStatusReady
}

// SetAddrData returns the SET_ADDR payload for a RAM address.
func SetAddrData(addr uint16) []byte {
	return []byte{byte(addr >> 8), byte(addr)}
}

// DownloadInitData returns the DOWNLOAD_INIT payload.
func DownloadInitData() []byte {
	return []byte{DownloadInitSeed}
}
