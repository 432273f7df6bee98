package mesh

import "fmt"

// Coordinate identifies a router in the 3D grid.
type Coordinate struct {
	Row   int `json:"row" yaml:"row"`
	Col   int `json:"col" yaml:"col"`
	Layer int `json:"layer" yaml:"layer"`
}

// String formats the coordinate as (row,col,layer).
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.Row, c.Col, c.Layer)
}

// Add returns the coordinate moved by one step in direction d.
func (c Coordinate) Add(d Direction) Coordinate {
	off := d.offset()

	return Coordinate{
		Row:   c.Row + off.Row,
		Col:   c.Col + off.Col,
		Layer: c.Layer + off.Layer,
	}
}

// Manhattan returns the hop distance between a and b in a fault-free mesh.
func Manhattan(a, b Coordinate) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col) + abs(a.Layer-b.Layer)
}

// Adjacent tells if a and b differ by exactly one in exactly one axis.
func Adjacent(a, b Coordinate) bool {
	return Manhattan(a, b) == 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// Direction is one of the six ports of a mesh router.
type Direction int

// The directions are listed in routing priority order: rows are resolved
// first, then columns, then layers.
const (
	RowPlus Direction = iota
	RowMinus
	ColPlus
	ColMinus
	LayerPlus
	LayerMinus
	numDirections
)

// AllDirections lists every direction in priority order.
var AllDirections = []Direction{
	RowPlus, RowMinus, ColPlus, ColMinus, LayerPlus, LayerMinus,
}

var directionNames = [...]string{
	"row+", "row-", "col+", "col-", "layer+", "layer-",
}

func (d Direction) String() string {
	if d < 0 || d >= numDirections {
		return "invalid"
	}

	return directionNames[d]
}

func (d Direction) offset() Coordinate {
	switch d {
	case RowPlus:
		return Coordinate{Row: 1}
	case RowMinus:
		return Coordinate{Row: -1}
	case ColPlus:
		return Coordinate{Col: 1}
	case ColMinus:
		return Coordinate{Col: -1}
	case LayerPlus:
		return Coordinate{Layer: 1}
	case LayerMinus:
		return Coordinate{Layer: -1}
	default:
		panic("unknown direction")
	}
}

// DirectionBetween returns the direction that leads from a to the adjacent
// coordinate b.
func DirectionBetween(a, b Coordinate) (Direction, bool) {
	for _, d := range AllDirections {
		if a.Add(d) == b {
			return d, true
		}
	}

	return 0, false
}
