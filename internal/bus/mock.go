package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// OpKind identifies a bus transaction recorded by Mock.
type OpKind int

const (
	OpReadReg OpKind = iota
	OpWriteReg
	OpReadWord
	OpWriteWord
	OpReadBlock
	OpWriteBlock
	OpWrite
	OpRead
)

func (k OpKind) String() string {
	switch k {
	case OpReadReg:
		return "read-reg"
	case OpWriteReg:
		return "write-reg"
	case OpReadWord:
		return "read-word"
	case OpWriteWord:
		return "write-word"
	case OpReadBlock:
		return "read-block"
	case OpWriteBlock:
		return "write-block"
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	default:
		return "unknown"
	}
}

// Op is one recorded transaction.
type Op struct {
	Kind OpKind
	Reg  byte
	Data []byte
}

func (o Op) String() string {
	return fmt.Sprintf("%s 0x%02X % X", o.Kind, o.Reg, o.Data)
}

// ErrMock is returned by Mock when failures are configured.
var ErrMock = errors.New("mock: failure configured")

// Mock is a thread-safe in-memory register map for testing.
//
// Single-byte register reads first consume values queued with Queue, then
// fall back to the register map. Hooks run after the transaction is recorded
// and may call back into the Mock.
type Mock struct {
	mu        sync.Mutex
	regs      [256]byte
	queued    map[byte][]byte
	rawReads  [][]byte
	ops       []Op
	addr      uint16
	failWrite bool
	failRead  bool

	onWriteReg func(reg, val byte)
	onWrite    func(p []byte)
}

// NewMock creates a mock bus addressed at the default device address.
func NewMock() *Mock {
	return &Mock{
		queued: make(map[byte][]byte),
		addr:   protocol.DefaultAddress,
	}
}

// Set sets a register value.
func (m *Mock) Set(reg, val byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[reg] = val
}

// SetBlock sets consecutive register values starting at reg.
func (m *Mock) SetBlock(reg byte, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.regs[reg:], data)
}

// Reg returns a register value.
func (m *Mock) Reg(reg byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg]
}

// Block returns n consecutive register values starting at reg.
func (m *Mock) Block(reg byte, n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, n)
	copy(out, m.regs[reg:])
	return out
}

// Queue schedules values returned by the next single-byte reads of reg.
func (m *Mock) Queue(reg byte, vals ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[reg] = append(m.queued[reg], vals...)
}

// QueueRead schedules the data returned by the next raw read.
func (m *Mock) QueueRead(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawReads = append(m.rawReads, append([]byte(nil), data...))
}

// OnWriteReg installs a hook called after every single-byte register write.
func (m *Mock) OnWriteReg(fn func(reg, val byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWriteReg = fn
}

// OnWrite installs a hook called after every raw write.
func (m *Mock) OnWrite(fn func(p []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWrite = fn
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read operations.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// Ops returns a copy of the recorded transactions.
func (m *Mock) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// Count returns how many transactions of kind touched reg.
func (m *Mock) Count(kind OpKind, reg byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, op := range m.ops {
		if op.Kind == kind && op.Reg == reg {
			n++
		}
	}
	return n
}

// ClearOps forgets the recorded transactions.
func (m *Mock) ClearOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

func (m *Mock) Address() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

func (m *Mock) SetAddress(addr uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addr = addr
}

func (m *Mock) record(kind OpKind, reg byte, data []byte) {
	m.ops = append(m.ops, Op{Kind: kind, Reg: reg, Data: append([]byte(nil), data...)})
}

func (m *Mock) ReadReg(reg byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return 0, ErrMock
	}
	val := m.regs[reg]
	if q := m.queued[reg]; len(q) > 0 {
		val = q[0]
		m.queued[reg] = q[1:]
	}
	m.record(OpReadReg, reg, []byte{val})
	return val, nil
}

func (m *Mock) WriteReg(reg, val byte) error {
	m.mu.Lock()
	if m.failWrite {
		m.mu.Unlock()
		return ErrMock
	}
	m.regs[reg] = val
	m.record(OpWriteReg, reg, []byte{val})
	hook := m.onWriteReg
	m.mu.Unlock()

	if hook != nil {
		hook(reg, val)
	}
	return nil
}

func (m *Mock) ReadWord(reg byte) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return 0, ErrMock
	}
	lo, hi := m.regs[reg], m.regs[reg+1]
	m.record(OpReadWord, reg, []byte{lo, hi})
	return uint16(lo) | uint16(hi)<<8, nil
}

func (m *Mock) WriteWord(reg byte, val uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return ErrMock
	}
	m.regs[reg] = byte(val)
	m.regs[reg+1] = byte(val >> 8)
	m.record(OpWriteWord, reg, []byte{byte(val), byte(val >> 8)})
	return nil
}

func (m *Mock) ReadBlock(reg byte, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return ErrMock
	}
	if len(buf) > protocol.MaxBlockSize {
		return fmt.Errorf("mock: block read of %d bytes exceeds %d", len(buf), protocol.MaxBlockSize)
	}
	copy(buf, m.regs[reg:])
	m.record(OpReadBlock, reg, buf)
	return nil
}

func (m *Mock) WriteBlock(reg byte, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return ErrMock
	}
	if len(data) > protocol.MaxBlockSize {
		return fmt.Errorf("mock: block write of %d bytes exceeds %d", len(data), protocol.MaxBlockSize)
	}
	copy(m.regs[reg:], data)
	m.record(OpWriteBlock, reg, data)
	return nil
}

func (m *Mock) Write(p []byte) error {
	m.mu.Lock()
	if m.failWrite {
		m.mu.Unlock()
		return ErrMock
	}
	var reg byte
	if len(p) > 0 {
		reg = p[0]
	}
	m.record(OpWrite, reg, p)
	hook := m.onWrite
	m.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (m *Mock) Read(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return ErrMock
	}
	for i := range p {
		p[i] = 0
	}
	if len(m.rawReads) > 0 {
		copy(p, m.rawReads[0])
		m.rawReads = m.rawReads[1:]
	}
	m.record(OpRead, 0, p)
	return nil
}
