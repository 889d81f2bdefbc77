package measurement

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bigbag/tmf882x/internal/protocol"
)

func TestNewCalibration_Length(t *testing.T) {
	for _, n := range []int{0, 187, 189, 192} {
		_, err := NewCalibration(make([]byte, n), 1)
		if !errors.Is(err, protocol.ErrInvalidCalibrationLength) {
			t.Errorf("NewCalibration(%d bytes) error = %v, want ErrInvalidCalibrationLength", n, err)
		}
	}
	c, err := NewCalibration(make([]byte, 188), 1)
	if err != nil {
		t.Fatalf("NewCalibration(188 bytes) error = %v", err)
	}
	if c.SpadMap != 1 || len(c.Data) != 188 {
		t.Errorf("NewCalibration() = %v", c)
	}
}

func TestDecodeCalibrationPage(t *testing.T) {
	page := make([]byte, 192)
	for i := range page {
		page[i] = byte(i)
	}
	c, err := DecodeCalibrationPage(page, 7)
	if err != nil {
		t.Fatalf("DecodeCalibrationPage() error = %v", err)
	}
	if !bytes.Equal(c.Data, page[4:]) {
		t.Error("DecodeCalibrationPage() did not strip exactly the 4-byte header")
	}
	if c.SpadMap != 7 {
		t.Errorf("SpadMap = %d, want 7", c.SpadMap)
	}

	// The calibration must not alias the page buffer.
	page[4] = 0xAA
	if c.Data[0] == 0xAA {
		t.Error("calibration data aliases the page buffer")
	}
}

func TestDecodeCalibrationPage_Short(t *testing.T) {
	var short *ShortBufferError
	if _, err := DecodeCalibrationPage(make([]byte, 191), 1); !errors.As(err, &short) {
		t.Errorf("DecodeCalibrationPage(191 bytes) error = %v, want ShortBufferError", err)
	}
}

func TestCalibration_Matches(t *testing.T) {
	c := &Calibration{SpadMap: 7, Data: make([]byte, 188)}
	if !c.Matches(7) {
		t.Error("Matches(7) = false, want true")
	}
	if c.Matches(1) {
		t.Error("Matches(1) = true, want false")
	}
	untagged := &Calibration{Data: make([]byte, 188)}
	if !untagged.Matches(1) || !untagged.Matches(7) {
		t.Error("untagged calibration should match any spad map")
	}
}

func TestSaveCalibration_KeepsSpadMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.bin")
	data := make([]byte, protocol.CalibDataSize)
	for i := range data {
		data[i] = byte(i * 3)
	}
	c, err := NewCalibration(data, 7)
	if err != nil {
		t.Fatal(err)
	}

	if err := SaveCalibration(path, c); err != nil {
		t.Fatalf("SaveCalibration() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, data) {
		t.Error("calibration file does not hold the raw data")
	}

	got, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if got.SpadMap != 7 {
		t.Errorf("LoadCalibration() spad map = %d, want 7", got.SpadMap)
	}
	if got.Matches(1) {
		t.Error("reloaded calibration matches a different spad map")
	}
}

func TestLoadCalibration_Untagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.bin")
	if err := os.WriteFile(path, make([]byte, protocol.CalibDataSize), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if c.SpadMap != 0 {
		t.Errorf("LoadCalibration() spad map = %d, want untagged", c.SpadMap)
	}
}

func TestLoadCalibration_Errors(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.bin")
	if err := os.WriteFile(short, make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCalibration(short); !errors.Is(err, protocol.ErrInvalidCalibrationLength) {
		t.Errorf("LoadCalibration(short) error = %v, want ErrInvalidCalibrationLength", err)
	}

	bad := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(bad, make([]byte, protocol.CalibDataSize), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(MetaPath(bad), []byte("spad_map: [1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCalibration(bad); err == nil {
		t.Error("LoadCalibration() with broken tag expected error, got nil")
	}

	if _, err := LoadCalibration(filepath.Join(dir, "missing.bin")); err == nil {
		t.Error("LoadCalibration() of missing file expected error, got nil")
	}
}
