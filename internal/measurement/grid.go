package measurement

import (
	"fmt"
	"strconv"
)

// GridOrder selects how the zone list is laid out on the grid.
//
// The two shipped driver revisions disagree on this, see DESIGN.md.
type GridOrder int

const (
	// RowMajor fills the grid row by row: zone = column + columns*row.
	RowMajor GridOrder = iota
	// ColumnMajor fills the grid column by column: zone = row + rows*column.
	ColumnMajor
)

func (o GridOrder) String() string {
	switch o {
	case RowMajor:
		return "row"
	case ColumnMajor:
		return "column"
	default:
		return "unknown"
	}
}

// ParseGridOrder parses "row" or "column".
func ParseGridOrder(s string) (GridOrder, error) {
	switch s {
	case "", "row":
		return RowMajor, nil
	case "column":
		return ColumnMajor, nil
	default:
		return 0, fmt.Errorf("unknown grid order %q", s)
	}
}

// Range is a grid distance. OK is false when the zone reported no detection.
type Range struct {
	MM uint16
	OK bool
}

func (r Range) String() string {
	if !r.OK {
		return "-"
	}
	return strconv.Itoa(int(r.MM))
}

// Zones returns the records that map onto grid cells for the active spad
// map, in zone order. For 4x4 maps the padding records are dropped.
func (m *Measurement) Zones(secondary bool) ([]Echo, Dims, error) {
	dims, err := SpadMapDims(m.SpadMap)
	if err != nil {
		return nil, Dims{}, err
	}

	window := m.echoes(secondary)
	if dims.is4x4() {
		zones := make([]Echo, 0, dims.Zones())
		zones = append(zones, window[:padding4x4[0]]...)
		zones = append(zones, window[padding4x4[0]+1:padding4x4[1]]...)
		return zones, dims, nil
	}
	if dims.Zones() > len(window) {
		return nil, Dims{}, fmt.Errorf("spad map %d needs %d zones, page has %d", m.SpadMap, dims.Zones(), len(window))
	}
	return window[:dims.Zones()], dims, nil
}

// cell returns the zone index displayed at (row, column).
func cell(order GridOrder, dims Dims, row, column int) int {
	if order == ColumnMajor {
		return row + dims.Rows*column
	}
	return column + dims.Columns*row
}

// Grid returns the distances of the primary or secondary echo as a
// rows x columns grid.
func (m *Measurement) Grid(order GridOrder, secondary bool) ([][]Range, error) {
	zones, dims, err := m.Zones(secondary)
	if err != nil {
		return nil, err
	}
	grid := make([][]Range, dims.Rows)
	for row := range grid {
		grid[row] = make([]Range, dims.Columns)
		for column := range grid[row] {
			z := zones[cell(order, dims, row, column)]
			grid[row][column] = Range{MM: z.Distance, OK: z.Distance != 0}
		}
	}
	return grid, nil
}

// ConfidenceGrid returns the confidences of the primary or secondary echo as
// a rows x columns grid.
func (m *Measurement) ConfidenceGrid(order GridOrder, secondary bool) ([][]uint8, error) {
	zones, dims, err := m.Zones(secondary)
	if err != nil {
		return nil, err
	}
	grid := make([][]uint8, dims.Rows)
	for row := range grid {
		grid[row] = make([]uint8, dims.Columns)
		for column := range grid[row] {
			grid[row][column] = zones[cell(order, dims, row, column)].Confidence
		}
	}
	return grid, nil
}
