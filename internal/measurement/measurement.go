// Package measurement decodes TMF882x result and calibration pages.
package measurement

import (
	"encoding/binary"
	"fmt"
)

// Result page layout.
const (
	Size        = 132 // bytes in a result page
	NumZones    = 18  // records per echo window
	recordStart = 24
	recordSize  = 3
)

// Layout selects how the 36 records of a result page are exposed.
type Layout int

const (
	// LayoutPaired returns 18 results, each carrying the secondary echo
	// found 18 records further into the page.
	LayoutPaired Layout = iota
	// LayoutFlat returns all 36 records as independent results.
	LayoutFlat
)

func (l Layout) String() string {
	switch l {
	case LayoutPaired:
		return "paired"
	case LayoutFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// ParseLayout parses "paired" or "flat".
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "paired":
		return LayoutPaired, nil
	case "flat":
		return LayoutFlat, nil
	default:
		return 0, fmt.Errorf("unknown layout %q", s)
	}
}

// Echo is one confidence/distance pair. A zero distance means nothing was
// detected.
type Echo struct {
	Confidence uint8
	Distance   uint16
}

// SpadResult is the result of one ranging zone.
type SpadResult struct {
	Confidence uint8
	Distance   uint16 // mm
	Secondary  *Echo  // nil unless decoded with LayoutPaired
	Histogram  []uint32
}

// Measurement is a decoded result page.
type Measurement struct {
	ResultNumber   uint8
	Temperature    int8 // °C
	ValidResults   uint8
	AmbientLight   uint32
	PhotonCount    uint32
	ReferenceCount uint32
	SystemTick     uint32
	Results        []SpadResult
	SpadMap        uint8
	Layout         Layout
}

// ShortBufferError is returned when a page is shorter than its fixed size.
type ShortBufferError struct {
	Got  int
	Want int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("buffer too short: %d bytes, want %d", e.Got, e.Want)
}

// Decode parses a result page captured while spadMap was active.
// Bytes past Size are ignored.
func Decode(data []byte, spadMap uint8, layout Layout) (*Measurement, error) {
	if len(data) < Size {
		return nil, &ShortBufferError{Got: len(data), Want: Size}
	}

	m := &Measurement{
		ResultNumber:   data[4],
		Temperature:    int8(data[5]),
		ValidResults:   data[6],
		AmbientLight:   binary.LittleEndian.Uint32(data[8:12]),
		PhotonCount:    binary.LittleEndian.Uint32(data[12:16]),
		ReferenceCount: binary.LittleEndian.Uint32(data[16:20]),
		SystemTick:     binary.LittleEndian.Uint32(data[20:24]),
		SpadMap:        spadMap,
		Layout:         layout,
	}

	switch layout {
	case LayoutPaired:
		m.Results = make([]SpadResult, NumZones)
		for i := range m.Results {
			primary := record(data, i)
			secondary := record(data, i+NumZones)
			m.Results[i] = SpadResult{
				Confidence: primary.Confidence,
				Distance:   primary.Distance,
				Secondary:  &secondary,
			}
		}
	case LayoutFlat:
		m.Results = make([]SpadResult, 2*NumZones)
		for i := range m.Results {
			r := record(data, i)
			m.Results[i] = SpadResult{Confidence: r.Confidence, Distance: r.Distance}
		}
	default:
		return nil, fmt.Errorf("unknown layout %d", layout)
	}

	return m, nil
}

// record decodes the i-th 3-byte zone record.
func record(data []byte, i int) Echo {
	off := recordStart + recordSize*i
	return Echo{
		Confidence: data[off],
		Distance:   binary.LittleEndian.Uint16(data[off+1 : off+3]),
	}
}

// echoes returns the 18-record window for the primary or secondary echo.
func (m *Measurement) echoes(secondary bool) []Echo {
	out := make([]Echo, NumZones)
	for i := range out {
		switch {
		case m.Layout == LayoutFlat && secondary:
			r := m.Results[i+NumZones]
			out[i] = Echo{Confidence: r.Confidence, Distance: r.Distance}
		case secondary:
			if s := m.Results[i].Secondary; s != nil {
				out[i] = *s
			}
		default:
			r := m.Results[i]
			out[i] = Echo{Confidence: r.Confidence, Distance: r.Distance}
		}
	}
	return out
}
