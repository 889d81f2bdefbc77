package flasher

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bigbag/tmf882x/internal/bus"
	"github.com/bigbag/tmf882x/internal/firmware"
	"github.com/bigbag/tmf882x/internal/protocol"
)

// Defaults for the bootloader status poll.
const (
	DefaultRetries     = 100
	DefaultPollDelay   = time.Millisecond
	DefaultSettleDelay = 3 * time.Millisecond
)

// ProgressCallback is called to report upload progress.
type ProgressCallback func(current, total int)

// Flasher pushes a firmware image into the TMF882x bootloader.
type Flasher struct {
	bus      bus.Bus
	progress ProgressCallback

	retries int
	delay   time.Duration
	settle  time.Duration
	sleep   func(time.Duration)
	log     *slog.Logger
}

// Option configures a Flasher.
type Option func(*Flasher)

// WithRetries sets how many times the bootloader status is polled after each frame.
func WithRetries(n int) Option {
	return func(f *Flasher) {
		if n > 0 {
			f.retries = n
		}
	}
}

// WithPollDelay sets the fixed delay between bootloader status polls.
func WithPollDelay(d time.Duration) Option {
	return func(f *Flasher) {
		f.delay = d
	}
}

// WithSettleDelay sets the wait after RAMREMAP_RESET.
func WithSettleDelay(d time.Duration) Option {
	return func(f *Flasher) {
		f.settle = d
	}
}

// WithSleep replaces time.Sleep.
func WithSleep(sleep func(time.Duration)) Option {
	return func(f *Flasher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithLogger sets the logger used for protocol traces.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flasher) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates a new Flasher on the given bus.
func New(b bus.Bus, opts ...Option) *Flasher {
	f := &Flasher{
		bus:     b,
		retries: DefaultRetries,
		delay:   DefaultPollDelay,
		settle:  DefaultSettleDelay,
		sleep:   time.Sleep,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetProgressCallback sets the progress callback function.
func (f *Flasher) SetProgressCallback(cb ProgressCallback) {
	f.progress = cb
}

// reportProgress calls the progress callback if set.
func (f *Flasher) reportProgress(current, total int) {
	if f.progress != nil {
		f.progress(current, total)
	}
}

// Upload loads img into device RAM and restarts the device into it.
// The device must be running the bootloader. A failed upload is not
// resumed; the caller has to start over from Enable.
func (f *Flasher) Upload(img *firmware.Image) error {
	appID, err := f.bus.ReadReg(protocol.RegAppID)
	if err != nil {
		return fmt.Errorf("failed to read app id: %w", err)
	}
	if protocol.AppID(appID) != protocol.AppBootloader {
		return fmt.Errorf("%w: app id is %s", protocol.ErrNotInBootloader, protocol.AppID(appID))
	}

	f.log.Debug("flasher: starting upload", "image", img.Name, "bytes", img.Size())

	if err := f.sendCommand(protocol.BlCmdDownloadInit, protocol.DownloadInitData()); err != nil {
		return fmt.Errorf("download init failed: %w", err)
	}

	if err := f.sendCommand(protocol.BlCmdSetAddr, protocol.SetAddrData(0)); err != nil {
		return fmt.Errorf("set address failed: %w", err)
	}

	chunks := img.Chunks()
	for i, chunk := range chunks {
		if err := f.sendCommand(protocol.BlCmdWriteRAM, chunk); err != nil {
			return fmt.Errorf("write RAM chunk %d failed: %w", i, err)
		}
		f.reportProgress(i+1, len(chunks))
	}

	if err := f.sendCommand(protocol.BlCmdRAMRemapReset, nil); err != nil {
		return fmt.Errorf("remap reset failed: %w", err)
	}

	f.sleep(f.settle)
	f.log.Debug("flasher: upload complete", "chunks", len(chunks))
	return nil
}

// sendCommand writes a framed bootloader command and waits until the
// bootloader reports it ready again.
func (f *Flasher) sendCommand(cmd byte, data []byte) error {
	frame, err := protocol.NewFrame(cmd, data)
	if err != nil {
		return err
	}

	if err := f.bus.Write(frame.Transaction()); err != nil {
		return err
	}

	var last byte
	for attempt := 0; attempt < f.retries; attempt++ {
		st, err := f.readStatus()
		if err != nil {
			return err
		}
		if st.IsReady() {
			return nil
		}
		last = st.Status
		f.sleep(f.delay)
	}

	return &protocol.BootloaderError{Command: cmd, Status: last}
}

// readStatus reads the 3-byte bootloader status record.
func (f *Flasher) readStatus() (*protocol.BootloaderStatus, error) {
	if err := f.bus.Write([]byte{protocol.RegCommand}); err != nil {
		return nil, err
	}
	buf := make([]byte, protocol.BootloaderStatusSize)
	if err := f.bus.Read(buf); err != nil {
		return nil, err
	}
	return protocol.DecodeBootloaderStatus(buf)
}
