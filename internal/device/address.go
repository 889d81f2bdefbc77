package device

import (
	"fmt"
	"time"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// addressChangeDelay is waited before and after the address change command.
const addressChangeDelay = 100 * time.Millisecond

// ChangeAddress moves the device to a new 7-bit address. Subsequent
// transactions target the new address when the bus supports re-addressing.
func (d *Device) ChangeAddress(addr uint16) error {
	if addr < MinAddress || addr > MaxAddress {
		return &InvalidAddressError{Address: addr}
	}

	if err := d.WriteField(FieldI2CAddress, addr<<1); err != nil {
		return err
	}
	if err := d.WriteField(FieldI2CAddressChange, 0); err != nil {
		return err
	}

	d.sleep(addressChangeDelay)
	if err := d.Command(protocol.CmdI2CAddressChange); err != nil {
		return fmt.Errorf("change address: %w", err)
	}
	d.sleep(addressChangeDelay)

	if a, ok := d.bus.(bus.Addresser); ok {
		a.SetAddress(addr)
	} else {
		d.log.Warn("tmf882x: bus cannot follow the new address", "address", addr)
	}
	d.log.Info("tmf882x: address changed", "address", fmt.Sprintf("0x%02X", addr))
	return nil
}
