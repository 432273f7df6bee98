package routing

import "github.com/sarchlab/faultnoc/noc/mesh"

// Table is a routing table that can find the primary next hop according to
// the final destination.
type Table interface {
	// NextHop returns the next coordinate on the way to dst, or false when
	// current is dst.
	NextHop(current, dst mesh.Coordinate) (mesh.Coordinate, bool)
}

// NewTable creates a table that always routes in dimension order.
func NewTable() Table {
	return mesh.DimensionOrderTable{}
}
