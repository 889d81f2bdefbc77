// Package detect locates TMF882x devices on an I2C bus.
package detect

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// ErrNotFound is returned when no device answers.
var ErrNotFound = errors.New("no TMF882x device found")

// lastScanAddress is the highest non-reserved 7-bit address.
const lastScanAddress = 0x77

// Result represents a detected TMF882x device.
type Result struct {
	Address uint16
	App     protocol.AppID
	// Minor and Serial are only read from the application.
	Minor  byte
	Serial uint32
}

func (r *Result) String() string {
	if r.App != protocol.AppApplication {
		return fmt.Sprintf("0x%02X %s", r.Address, r.App)
	}
	return fmt.Sprintf("0x%02X %s v%d serial %08X", r.Address, r.App, r.Minor, r.Serial)
}

// DefaultAddresses returns the factory address followed by every other
// scannable address.
func DefaultAddresses() []uint16 {
	addrs := []uint16{protocol.DefaultAddress}
	for a := uint16(0x08); a <= lastScanAddress; a++ {
		if a != protocol.DefaultAddress {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// Probe identifies the device at the bus's current address.
func Probe(b bus.Bus) (*Result, error) {
	v, err := b.ReadReg(protocol.RegAppID)
	if err != nil {
		return nil, fmt.Errorf("failed to read app id: %w", err)
	}
	app := protocol.AppID(v)
	if !app.Known() {
		return nil, fmt.Errorf("unexpected app id 0x%02X", v)
	}

	result := &Result{App: app}
	if a, ok := b.(bus.Addresser); ok {
		result.Address = a.Address()
	}
	if app != protocol.AppApplication {
		return result, nil
	}

	if result.Minor, err = b.ReadReg(protocol.RegMinor); err != nil {
		return nil, fmt.Errorf("failed to read minor version: %w", err)
	}
	serial := make([]byte, 4)
	if err := b.ReadBlock(protocol.RegSerial, serial); err != nil {
		return nil, fmt.Errorf("failed to read serial number: %w", err)
	}
	result.Serial = binary.LittleEndian.Uint32(serial)
	return result, nil
}

// Scan probes every address in addrs and returns all detected devices.
// The bus is moved back to its original address afterwards.
func Scan(b bus.Bus, addrs []uint16) ([]Result, error) {
	a, ok := b.(bus.Addresser)
	if !ok {
		return nil, fmt.Errorf("bus cannot be readdressed for scanning")
	}
	orig := a.Address()
	defer a.SetAddress(orig)

	var results []Result
	for _, addr := range addrs {
		a.SetAddress(addr)
		result, err := Probe(b)
		if err == nil {
			results = append(results, *result)
		}
	}
	return results, nil
}

// Find returns the first device answering in addrs and leaves the bus
// addressed at it.
func Find(b bus.Bus, addrs []uint16) (*Result, error) {
	a, ok := b.(bus.Addresser)
	if !ok {
		return nil, fmt.Errorf("bus cannot be readdressed for scanning")
	}
	orig := a.Address()

	var lastErr error
	for _, addr := range addrs {
		a.SetAddress(addr)
		result, err := Probe(b)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	a.SetAddress(orig)
	if lastErr != nil {
		return nil, fmt.Errorf("%w (last error: %w)", ErrNotFound, lastErr)
	}
	return nil, ErrNotFound
}
