package measurement

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bigbag/tmf882x/internal/protocol"
)

// page builds a result page with zone record i set to (conf, dist).
func page(records map[int]Echo) []byte {
	data := make([]byte, Size)
	for i, r := range records {
		off := 24 + 3*i
		data[off] = r.Confidence
		binary.LittleEndian.PutUint16(data[off+1:], r.Distance)
	}
	return data
}

func TestDecode_Header(t *testing.T) {
	data := make([]byte, Size)
	data[4] = 7
	data[5] = 0xF6 // -10 °C
	data[6] = 9
	binary.LittleEndian.PutUint32(data[8:], 0x11223344)
	binary.LittleEndian.PutUint32(data[12:], 1000)
	binary.LittleEndian.PutUint32(data[16:], 2000)
	binary.LittleEndian.PutUint32(data[20:], 0xDEADBEEF)

	m, err := Decode(data, 1, LayoutPaired)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if m.ResultNumber != 7 {
		t.Errorf("ResultNumber = %d, want 7", m.ResultNumber)
	}
	if m.Temperature != -10 {
		t.Errorf("Temperature = %d, want -10", m.Temperature)
	}
	if m.ValidResults != 9 {
		t.Errorf("ValidResults = %d, want 9", m.ValidResults)
	}
	if m.AmbientLight != 0x11223344 {
		t.Errorf("AmbientLight = 0x%X, want 0x11223344", m.AmbientLight)
	}
	if m.PhotonCount != 1000 || m.ReferenceCount != 2000 {
		t.Errorf("PhotonCount, ReferenceCount = %d, %d, want 1000, 2000", m.PhotonCount, m.ReferenceCount)
	}
	if m.SystemTick != 0xDEADBEEF {
		t.Errorf("SystemTick = 0x%X, want 0xDEADBEEF", m.SystemTick)
	}
	if m.SpadMap != 1 {
		t.Errorf("SpadMap = %d, want 1", m.SpadMap)
	}
}

func TestDecode_ShortBuffer(t *testing.T) {
	for _, n := range []int{0, 1, 24, Size - 1} {
		_, err := Decode(make([]byte, n), 1, LayoutPaired)
		var short *ShortBufferError
		if !errors.As(err, &short) {
			t.Errorf("Decode(%d bytes) error = %v, want ShortBufferError", n, err)
			continue
		}
		if short.Got != n || short.Want != Size {
			t.Errorf("ShortBufferError = %+v, want Got=%d Want=%d", short, n, Size)
		}
	}
}

func TestDecode_AllZero(t *testing.T) {
	for _, layout := range []Layout{LayoutPaired, LayoutFlat} {
		m, err := Decode(make([]byte, Size), 1, layout)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", layout, err)
		}
		for i, r := range m.Results {
			if r.Confidence != 0 {
				t.Errorf("%s result %d confidence = %d, want 0", layout, i, r.Confidence)
			}
		}
		for _, secondary := range []bool{false, true} {
			grid, err := m.Grid(RowMajor, secondary)
			if err != nil {
				t.Fatalf("Grid() error = %v", err)
			}
			for _, row := range grid {
				for _, cell := range row {
					if cell.OK {
						t.Errorf("%s grid cell = %v, want absent", layout, cell)
					}
				}
			}
		}
	}
}

func TestDecode_Layouts(t *testing.T) {
	data := page(map[int]Echo{
		0:  {Confidence: 200, Distance: 500},
		18: {Confidence: 50, Distance: 1500},
		35: {Confidence: 10, Distance: 3000},
	})

	paired, err := Decode(data, 1, LayoutPaired)
	if err != nil {
		t.Fatalf("Decode(paired) error = %v", err)
	}
	if len(paired.Results) != 18 {
		t.Fatalf("paired results = %d, want 18", len(paired.Results))
	}
	if paired.Results[0].Distance != 500 || paired.Results[0].Confidence != 200 {
		t.Errorf("paired result 0 = %+v", paired.Results[0])
	}
	if s := paired.Results[0].Secondary; s == nil || s.Distance != 1500 || s.Confidence != 50 {
		t.Errorf("paired result 0 secondary = %+v, want {50 1500}", s)
	}
	if s := paired.Results[17].Secondary; s == nil || s.Distance != 3000 {
		t.Errorf("paired result 17 secondary = %+v, want distance 3000", s)
	}

	flat, err := Decode(data, 1, LayoutFlat)
	if err != nil {
		t.Fatalf("Decode(flat) error = %v", err)
	}
	if len(flat.Results) != 36 {
		t.Fatalf("flat results = %d, want 36", len(flat.Results))
	}
	if flat.Results[18].Distance != 1500 || flat.Results[35].Distance != 3000 {
		t.Errorf("flat results 18, 35 = %+v, %+v", flat.Results[18], flat.Results[35])
	}
	if flat.Results[0].Secondary != nil {
		t.Error("flat result should not carry a secondary echo")
	}

	// Both layouts expose the same secondary grid.
	pg, _ := paired.Grid(RowMajor, true)
	fg, _ := flat.Grid(RowMajor, true)
	if pg[0][0] != fg[0][0] || pg[0][0].MM != 1500 {
		t.Errorf("secondary grid[0][0] paired=%v flat=%v, want 1500", pg[0][0], fg[0][0])
	}
}

func TestGrid_3x3_RowMajor(t *testing.T) {
	records := map[int]Echo{}
	for i := 0; i < 9; i++ {
		records[i] = Echo{Confidence: 255, Distance: uint16(i + 1)}
	}
	m, err := Decode(page(records), 1, LayoutPaired)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	grid, err := m.Grid(RowMajor, false)
	if err != nil {
		t.Fatalf("Grid() error = %v", err)
	}
	expected := [3][3]uint16{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	seen := map[uint16]int{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			cell := grid[r][c]
			if !cell.OK || cell.MM != expected[r][c] {
				t.Errorf("grid[%d][%d] = %v, want %d", r, c, cell, expected[r][c])
			}
			seen[cell.MM]++
		}
	}
	for v := uint16(1); v <= 9; v++ {
		if seen[v] != 1 {
			t.Errorf("value %d appears %d times, want 1", v, seen[v])
		}
	}
}

func TestGrid_3x3_ColumnMajor(t *testing.T) {
	records := map[int]Echo{}
	for i := 0; i < 9; i++ {
		records[i] = Echo{Distance: uint16(i + 1)}
	}
	m, _ := Decode(page(records), 1, LayoutPaired)

	grid, err := m.Grid(ColumnMajor, false)
	if err != nil {
		t.Fatalf("Grid() error = %v", err)
	}
	expected := [3][3]uint16{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if grid[r][c].MM != expected[r][c] {
				t.Errorf("grid[%d][%d] = %v, want %d", r, c, grid[r][c], expected[r][c])
			}
		}
	}
}

func TestGrid_3x6_ColumnMajor(t *testing.T) {
	records := map[int]Echo{}
	for i := 0; i < 18; i++ {
		records[i] = Echo{Distance: uint16(i + 1)}
	}
	m, _ := Decode(page(records), 12, LayoutPaired)

	grid, err := m.Grid(ColumnMajor, false)
	if err != nil {
		t.Fatalf("Grid() error = %v", err)
	}
	if len(grid) != 6 || len(grid[0]) != 3 {
		t.Fatalf("grid is %dx%d, want 6 rows x 3 columns", len(grid), len(grid[0]))
	}
	seen := map[uint16]bool{}
	for r := range grid {
		for c := range grid[r] {
			want := uint16(r + 6*c + 1)
			if grid[r][c].MM != want {
				t.Errorf("grid[%d][%d] = %v, want %d", r, c, grid[r][c], want)
			}
			seen[grid[r][c].MM] = true
		}
	}
	if len(seen) != 18 {
		t.Errorf("grid holds %d distinct zones, want 18", len(seen))
	}
}

func TestGrid_4x4_SkipsPadding(t *testing.T) {
	records := map[int]Echo{}
	for i := 0; i < 18; i++ {
		records[i] = Echo{Confidence: 100, Distance: uint16(100 + i)}
	}
	// Padding records carry a marker that must never appear.
	records[8] = Echo{Confidence: 1, Distance: 9999}
	records[17] = Echo{Confidence: 1, Distance: 8888}

	m, _ := Decode(page(records), 7, LayoutPaired)

	zones, dims, err := m.Zones(false)
	if err != nil {
		t.Fatalf("Zones() error = %v", err)
	}
	if dims != (Dims{4, 4}) || len(zones) != 16 {
		t.Fatalf("Zones() = %d zones, dims %+v, want 16, 4x4", len(zones), dims)
	}

	for _, order := range []GridOrder{RowMajor, ColumnMajor} {
		grid, err := m.Grid(order, false)
		if err != nil {
			t.Fatalf("Grid() error = %v", err)
		}
		count := 0
		for _, row := range grid {
			for _, cell := range row {
				if cell.MM == 9999 || cell.MM == 8888 {
					t.Errorf("%s grid contains padding record %d", order, cell.MM)
				}
				count++
			}
		}
		if count != 16 {
			t.Errorf("%s grid has %d cells, want 16", order, count)
		}
	}

	grid, _ := m.Grid(RowMajor, false)
	if grid[1][3].MM != 107 || grid[2][0].MM != 109 || grid[3][3].MM != 116 {
		t.Errorf("grid[1][3], grid[2][0], grid[3][3] = %v, %v, %v, want 107, 109, 116",
			grid[1][3], grid[2][0], grid[3][3])
	}
}

func TestGrid_UnsupportedSpadMap(t *testing.T) {
	m, _ := Decode(make([]byte, Size), 14, LayoutPaired)
	_, err := m.Grid(RowMajor, false)
	if !errors.Is(err, protocol.ErrUnsupportedSpadMap) {
		t.Errorf("Grid() error = %v, want ErrUnsupportedSpadMap", err)
	}
	_, err = m.ConfidenceGrid(RowMajor, false)
	var spadErr *protocol.UnsupportedSpadMapError
	if !errors.As(err, &spadErr) || spadErr.ID != 14 {
		t.Errorf("ConfidenceGrid() error = %v, want UnsupportedSpadMapError{14}", err)
	}
}

func TestConfidenceGrid(t *testing.T) {
	records := map[int]Echo{}
	for i := 0; i < 9; i++ {
		records[i] = Echo{Confidence: uint8(10 * (i + 1)), Distance: 1}
		records[i+18] = Echo{Confidence: uint8(i + 1), Distance: 2}
	}
	m, _ := Decode(page(records), 3, LayoutPaired)

	primary, err := m.ConfidenceGrid(RowMajor, false)
	if err != nil {
		t.Fatalf("ConfidenceGrid() error = %v", err)
	}
	if primary[0][0] != 10 || primary[2][2] != 90 {
		t.Errorf("primary confidence grid = %v", primary)
	}
	secondary, _ := m.ConfidenceGrid(RowMajor, true)
	if secondary[0][1] != 2 || secondary[2][2] != 9 {
		t.Errorf("secondary confidence grid = %v", secondary)
	}
}

func TestSpadMapDims(t *testing.T) {
	tests := []struct {
		id       uint8
		expected Dims
	}{
		{1, Dims{3, 3}},
		{2, Dims{3, 5}},
		{7, Dims{4, 4}},
		{12, Dims{3, 6}},
		{13, Dims{4, 4}},
	}
	for _, tc := range tests {
		got, err := SpadMapDims(tc.id)
		if err != nil {
			t.Errorf("SpadMapDims(%d) error = %v", tc.id, err)
			continue
		}
		if got != tc.expected {
			t.Errorf("SpadMapDims(%d) = %+v, want %+v", tc.id, got, tc.expected)
		}
	}
	for _, id := range []uint8{0, 14, 15, 255} {
		if _, err := SpadMapDims(id); err == nil {
			t.Errorf("SpadMapDims(%d) expected error, got nil", id)
		}
	}
}

func TestParseOptions(t *testing.T) {
	if o, err := ParseGridOrder("column"); err != nil || o != ColumnMajor {
		t.Errorf("ParseGridOrder(column) = %v, %v", o, err)
	}
	if o, err := ParseGridOrder(""); err != nil || o != RowMajor {
		t.Errorf("ParseGridOrder('') = %v, %v", o, err)
	}
	if _, err := ParseGridOrder("diagonal"); err == nil {
		t.Error("ParseGridOrder(diagonal) expected error")
	}
	if l, err := ParseLayout("flat"); err != nil || l != LayoutFlat {
		t.Errorf("ParseLayout(flat) = %v, %v", l, err)
	}
	if _, err := ParseLayout("x"); err == nil {
		t.Error("ParseLayout(x) expected error")
	}
}

func TestRange_String(t *testing.T) {
	if s := (Range{}).String(); s != "-" {
		t.Errorf("absent Range.String() = %q, want -", s)
	}
	if s := (Range{MM: 1234, OK: true}).String(); s != "1234" {
		t.Errorf("Range.String() = %q, want 1234", s)
	}
}
