package measurement

import "github.com/bigbag/tmf882x/internal/protocol"

// Dims is the zone geometry of a spad map.
type Dims struct {
	Columns int
	Rows    int
}

// Zones returns the number of grid cells.
func (d Dims) Zones() int {
	return d.Columns * d.Rows
}

// spadMapDims lists the predefined spad maps. User-defined maps (14, 15)
// have no fixed geometry.
var spadMapDims = map[uint8]Dims{
	1:  {3, 3}, // normal field of view
	2:  {3, 5},
	3:  {3, 3}, // wide
	4:  {3, 3},
	5:  {3, 3},
	6:  {3, 3},
	7:  {4, 4},
	8:  {4, 4},
	9:  {4, 4},
	10: {3, 3},
	11: {3, 3},
	12: {3, 6},
	13: {4, 4},
}

// SpadMapDims returns the grid geometry of spad map id.
func SpadMapDims(id uint8) (Dims, error) {
	d, ok := spadMapDims[id]
	if !ok {
		return Dims{}, &protocol.UnsupportedSpadMapError{ID: id}
	}
	return d, nil
}

// is4x4 reports whether the map uses the 4x4 arrangement whose result
// window carries two padding records.
func (d Dims) is4x4() bool {
	return d.Columns == 4 && d.Rows == 4
}

// padding4x4 are the record indices inside the 18-record window that carry
// no zone data for 4x4 maps.
var padding4x4 = [...]int{8, 17}
