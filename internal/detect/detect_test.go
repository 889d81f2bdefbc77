package detect

import (
	"errors"
	"testing"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// multiBus routes transactions to a per-address mock. Addresses without a
// mock NACK every transaction.
type multiBus struct {
	addr    uint16
	devices map[uint16]*bus.Mock
}

var errNack = errors.New("nack")

func (m *multiBus) dev() (*bus.Mock, error) {
	d, ok := m.devices[m.addr]
	if !ok {
		return nil, errNack
	}
	return d, nil
}

func (m *multiBus) Address() uint16        { return m.addr }
func (m *multiBus) SetAddress(addr uint16) { m.addr = addr }

func (m *multiBus) ReadReg(reg byte) (byte, error) {
	d, err := m.dev()
	if err != nil {
		return 0, err
	}
	return d.ReadReg(reg)
}

func (m *multiBus) WriteReg(reg, val byte) error {
	d, err := m.dev()
	if err != nil {
		return err
	}
	return d.WriteReg(reg, val)
}

func (m *multiBus) ReadWord(reg byte) (uint16, error) {
	d, err := m.dev()
	if err != nil {
		return 0, err
	}
	return d.ReadWord(reg)
}

func (m *multiBus) WriteWord(reg byte, val uint16) error {
	d, err := m.dev()
	if err != nil {
		return err
	}
	return d.WriteWord(reg, val)
}

func (m *multiBus) ReadBlock(reg byte, buf []byte) error {
	d, err := m.dev()
	if err != nil {
		return err
	}
	return d.ReadBlock(reg, buf)
}

func (m *multiBus) WriteBlock(reg byte, data []byte) error {
	d, err := m.dev()
	if err != nil {
		return err
	}
	return d.WriteBlock(reg, data)
}

func (m *multiBus) Write(p []byte) error {
	d, err := m.dev()
	if err != nil {
		return err
	}
	return d.Write(p)
}

func (m *multiBus) Read(p []byte) error {
	d, err := m.dev()
	if err != nil {
		return err
	}
	return d.Read(p)
}

func appDevice(minor byte, serial []byte) *bus.Mock {
	m := bus.NewMock()
	m.Set(protocol.RegAppID, byte(protocol.AppApplication))
	m.Set(protocol.RegMinor, minor)
	m.SetBlock(protocol.RegSerial, serial)
	return m
}

func bootloaderDevice() *bus.Mock {
	m := bus.NewMock()
	m.Set(protocol.RegAppID, byte(protocol.AppBootloader))
	return m
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		dev     *bus.Mock
		want    Result
		wantErr bool
	}{
		{
			name: "application",
			dev:  appDevice(0x1A, []byte{0x04, 0x03, 0x02, 0x01}),
			want: Result{Address: 0x41, App: protocol.AppApplication, Minor: 0x1A, Serial: 0x01020304},
		},
		{
			name: "bootloader",
			dev:  bootloaderDevice(),
			want: Result{Address: 0x41, App: protocol.AppBootloader},
		},
		{
			name:    "unknown app id",
			dev:     bus.NewMock(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Probe(tt.dev)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Probe() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && *got != tt.want {
				t.Errorf("Probe() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestProbe_BusError(t *testing.T) {
	m := bus.NewMock()
	m.SetFailRead(true)
	if _, err := Probe(m); !errors.Is(err, bus.ErrMock) {
		t.Errorf("Probe() error = %v, want ErrMock", err)
	}
}

func TestScan(t *testing.T) {
	b := &multiBus{
		addr: 0x41,
		devices: map[uint16]*bus.Mock{
			0x41: appDevice(1, []byte{1, 0, 0, 0}),
			0x29: bootloaderDevice(),
			0x50: bus.NewMock(), // answers but is not a TMF882x
		},
	}

	results, err := Scan(b, DefaultAddresses())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Scan() found %d devices, want 2: %v", len(results), results)
	}
	if results[0].Address != 0x41 || results[1].Address != 0x29 {
		t.Errorf("Scan() addresses = 0x%02X, 0x%02X, want 0x41, 0x29", results[0].Address, results[1].Address)
	}
	if b.addr != 0x41 {
		t.Errorf("bus address after Scan() = 0x%02X, want 0x41", b.addr)
	}
}

func TestScan_NotAddressable(t *testing.T) {
	var b bus.Bus = struct{ bus.Bus }{bus.NewMock()}
	if _, err := Scan(b, DefaultAddresses()); err == nil {
		t.Error("Scan() on a fixed-address bus expected error, got nil")
	}
}

func TestFind(t *testing.T) {
	b := &multiBus{
		addr:    0x41,
		devices: map[uint16]*bus.Mock{0x30: bootloaderDevice()},
	}

	got, err := Find(b, DefaultAddresses())
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Address != 0x30 || got.App != protocol.AppBootloader {
		t.Errorf("Find() = %+v", got)
	}
	if b.addr != 0x30 {
		t.Errorf("bus address after Find() = 0x%02X, want 0x30", b.addr)
	}
}

func TestFind_NotFound(t *testing.T) {
	b := &multiBus{addr: 0x41}

	_, err := Find(b, []uint16{0x41, 0x42})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() error = %v, want ErrNotFound", err)
	}
	if !errors.Is(err, errNack) {
		t.Errorf("Find() error = %v, want last probe error", err)
	}
	if b.addr != 0x41 {
		t.Errorf("bus address after failed Find() = 0x%02X, want 0x41", b.addr)
	}
}

func TestDefaultAddresses(t *testing.T) {
	addrs := DefaultAddresses()
	if addrs[0] != protocol.DefaultAddress {
		t.Errorf("DefaultAddresses()[0] = 0x%02X, want 0x41", addrs[0])
	}
	if len(addrs) != 0x77-0x08+1 {
		t.Errorf("len(DefaultAddresses()) = %d, want %d", len(addrs), 0x77-0x08+1)
	}
	seen := make(map[uint16]bool)
	for _, a := range addrs {
		if seen[a] {
			t.Errorf("address 0x%02X listed twice", a)
		}
		seen[a] = true
	}
}
