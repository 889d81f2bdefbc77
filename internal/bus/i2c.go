package bus

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// DefaultOpsPerSec is the default bus transaction rate limit.
const DefaultOpsPerSec = 2000

// I2C is a Bus backed by a periph.io I2C bus.
type I2C struct {
	mu      sync.Mutex
	bus     i2c.BusCloser
	dev     *i2c.Dev
	name    string
	limiter *rate.Limiter
}

// Open opens the named I2C bus ("" selects the first available bus) and
// binds it to the device at addr. opsPerSec <= 0 disables rate limiting.
func Open(name string, addr uint16, opsPerSec int) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: host init failed: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: failed to open bus %q: %w", name, err)
	}

	limit := rate.Inf
	if opsPerSec > 0 {
		limit = rate.Limit(opsPerSec)
	}

	if name == "" {
		name = b.String()
	}

	slog.Debug("i2c: bus opened", "bus", b.String(), "addr", fmt.Sprintf("0x%02x", addr))
	return &I2C{
		bus:     b,
		dev:     &i2c.Dev{Bus: b, Addr: addr},
		name:    name,
		limiter: rate.NewLimiter(limit, 10),
	}, nil
}

// Close closes the underlying bus.
func (b *I2C) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bus != nil {
		err := b.bus.Close()
		b.bus = nil
		return err
	}
	return nil
}

// Name returns the name of the opened bus.
func (b *I2C) Name() string {
	return b.name
}

// Address returns the current device address.
func (b *I2C) Address() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev.Addr
}

// SetAddress retargets subsequent transactions to addr.
func (b *I2C) SetAddress(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dev = &i2c.Dev{Bus: b.bus, Addr: addr}
}

// tx runs a single combined write/read transaction.
func (b *I2C) tx(w, r []byte) error {
	if err := b.limiter.Wait(context.Background()); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bus == nil {
		return fmt.Errorf("i2c: bus closed")
	}
	return b.dev.Tx(w, r)
}

func (b *I2C) ReadReg(reg byte) (byte, error) {
	var r [1]byte
	if err := b.tx([]byte{reg}, r[:]); err != nil {
		return 0, fmt.Errorf("i2c: read reg 0x%02x: %w", reg, err)
	}
	return r[0], nil
}

func (b *I2C) WriteReg(reg, val byte) error {
	if err := b.tx([]byte{reg, val}, nil); err != nil {
		return fmt.Errorf("i2c: write reg 0x%02x: %w", reg, err)
	}
	return nil
}

func (b *I2C) ReadWord(reg byte) (uint16, error) {
	var r [2]byte
	if err := b.tx([]byte{reg}, r[:]); err != nil {
		return 0, fmt.Errorf("i2c: read word 0x%02x: %w", reg, err)
	}
	return binary.LittleEndian.Uint16(r[:]), nil
}

func (b *I2C) WriteWord(reg byte, val uint16) error {
	w := []byte{reg, 0, 0}
	binary.LittleEndian.PutUint16(w[1:], val)
	if err := b.tx(w, nil); err != nil {
		return fmt.Errorf("i2c: write word 0x%02x: %w", reg, err)
	}
	return nil
}

func (b *I2C) ReadBlock(reg byte, buf []byte) error {
	if len(buf) > protocol.MaxBlockSize {
		return fmt.Errorf("i2c: block read of %d bytes exceeds %d", len(buf), protocol.MaxBlockSize)
	}
	if err := b.tx([]byte{reg}, buf); err != nil {
		return fmt.Errorf("i2c: read block 0x%02x: %w", reg, err)
	}
	return nil
}

func (b *I2C) WriteBlock(reg byte, data []byte) error {
	if len(data) > protocol.MaxBlockSize {
		return fmt.Errorf("i2c: block write of %d bytes exceeds %d", len(data), protocol.MaxBlockSize)
	}
	w := append([]byte{reg}, data...)
	if err := b.tx(w, nil); err != nil {
		return fmt.Errorf("i2c: write block 0x%02x: %w", reg, err)
	}
	return nil
}

func (b *I2C) Write(p []byte) error {
	if err := b.tx(p, nil); err != nil {
		return fmt.Errorf("i2c: raw write: %w", err)
	}
	return nil
}

func (b *I2C) Read(p []byte) error {
	if err := b.tx(nil, p); err != nil {
		return fmt.Errorf("i2c: raw read: %w", err)
	}
	return nil
}

// ListBuses returns the names of the I2C buses registered on this host.
func ListBuses() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: host init failed: %w", err)
	}
	var names []string
	for _, ref := range i2creg.All() {
		names = append(names, ref.Name)
	}
	return names, nil
}
