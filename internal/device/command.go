package device

import (
	"fmt"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// Command writes cmd to the command register and polls the status register
// until the device leaves the busy range. The poll delay is constant and the
// number of status reads is bounded by Timing.CommandRetries.
func (d *Device) Command(cmd byte) error {
	if err := d.bus.WriteReg(protocol.RegCommand, cmd); err != nil {
		return fmt.Errorf("write command %s: %w", protocol.CommandName(cmd), err)
	}

	var status byte
	for attempt := 1; ; attempt++ {
		s, err := d.bus.ReadReg(protocol.RegCommand)
		if err != nil {
			return fmt.Errorf("read status of %s: %w", protocol.CommandName(cmd), err)
		}
		status = s
		if status < protocol.StatusBusy {
			break
		}
		if attempt >= d.timing.CommandRetries {
			return &protocol.CommandError{Command: cmd, Status: status, Err: protocol.ErrTimeout}
		}
		d.sleep(d.timing.PollDelay)
	}

	if status != protocol.StatusOK && status != protocol.StatusAccepted {
		return &protocol.CommandError{Command: cmd, Status: status}
	}
	d.log.Debug("tmf882x: command done", "cmd", protocol.CommandName(cmd), "status", status)
	return nil
}
