// Package firmware holds the application image pushed into the TMF882x
// bootloader.
package firmware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// Image is an opaque firmware image.
type Image struct {
	Name string
	data []byte
}

// New wraps raw firmware bytes.
func New(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, errors.New("firmware image is empty")
	}
	return &Image{Name: name, data: data}, nil
}

// Load reads a firmware image from disk.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware file: %w", err)
	}
	return New(path, data)
}

// Bytes returns the raw image.
func (img *Image) Bytes() []byte {
	return img.data
}

// Size returns the image size in bytes.
func (img *Image) Size() int {
	return len(img.data)
}

// SHA256 returns the hex-encoded SHA-256 digest of the image.
func (img *Image) SHA256() string {
	sum := sha256.Sum256(img.data)
	return hex.EncodeToString(sum[:])
}

// Chunks splits the image into sequential WRITE_RAM payloads of at most
// protocol.MaxFramePayload bytes. The last chunk may be shorter.
func (img *Image) Chunks() [][]byte {
	return Split(img.data, protocol.MaxFramePayload)
}

// NumChunks returns len(img.Chunks()) without allocating.
func (img *Image) NumChunks() int {
	return (len(img.data) + protocol.MaxFramePayload - 1) / protocol.MaxFramePayload
}

// Split partitions data into consecutive slices of at most size bytes.
func Split(data []byte, size int) [][]byte {
	if size <= 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}
