package mesh

// DimensionOrderTable finds the next hop according to the coordinate of the
// final destination. Rows are resolved first, then columns, then layers.
type DimensionOrderTable struct{}

// NextHop returns the neighbor of current on the dimension-order path to dst.
// It returns false when current is already dst.
func (DimensionOrderTable) NextHop(current, dst Coordinate) (Coordinate, bool) {
	d, ok := PrimaryDirection(current, dst)
	if !ok {
		return current, false
	}

	return current.Add(d), true
}

// PrimaryDirection returns the direction the dimension-order rule takes from
// current toward dst.
func PrimaryDirection(current, dst Coordinate) (Direction, bool) {
	switch {
	case dst.Row > current.Row:
		return RowPlus, true
	case dst.Row < current.Row:
		return RowMinus, true
	case dst.Col > current.Col:
		return ColPlus, true
	case dst.Col < current.Col:
		return ColMinus, true
	case dst.Layer > current.Layer:
		return LayerPlus, true
	case dst.Layer < current.Layer:
		return LayerMinus, true
	default:
		return 0, false
	}
}
