package mesh

import "log"

// Topology owns every router and link of a 3D mesh. Routers are stored by
// index (layer-major, then column, then row) and links by LinkKey. The
// structure never changes after Build; only the records' health, power,
// temperature and queues do.
type Topology struct {
	rows, cols, layers int
	linkLatency        int
	routerLatency      int

	routers   []Router
	links     []Link
	linkIndex map[LinkKey]int
}

// Dimensions returns the number of rows, columns and layers.
func (t *Topology) Dimensions() (rows, cols, layers int) {
	return t.rows, t.cols, t.layers
}

// LinkLatency returns the latency of the links, in cycles.
func (t *Topology) LinkLatency() int {
	return t.linkLatency
}

// RouterLatency returns the pipeline latency of the routers, in cycles.
func (t *Topology) RouterLatency() int {
	return t.routerLatency
}

// NumRouters returns the number of routers.
func (t *Topology) NumRouters() int {
	return len(t.routers)
}

// NumLinks returns the number of links.
func (t *Topology) NumLinks() int {
	return len(t.links)
}

// Contains tells if c is inside the grid.
func (t *Topology) Contains(c Coordinate) bool {
	return c.Row >= 0 && c.Row < t.rows &&
		c.Col >= 0 && c.Col < t.cols &&
		c.Layer >= 0 && c.Layer < t.layers
}

// Index returns the arena index of the router at c.
func (t *Topology) Index(c Coordinate) int {
	if !t.Contains(c) {
		log.Panicf("coordinate %s out of bounds", c)
	}

	return c.Layer*t.rows*t.cols + c.Col*t.rows + c.Row
}

// CoordinateOf returns the coordinate of the router with the given index.
func (t *Topology) CoordinateOf(index int) Coordinate {
	plane := t.rows * t.cols

	return Coordinate{
		Layer: index / plane,
		Col:   (index % plane) / t.rows,
		Row:   (index % plane) % t.rows,
	}
}

// Router returns the record of the router at c.
func (t *Topology) Router(c Coordinate) *Router {
	return &t.routers[t.Index(c)]
}

// RouterAt returns the record of the router with the given index.
func (t *Topology) RouterAt(index int) *Router {
	return &t.routers[index]
}

// Link returns the link between a and b, if they are adjacent.
func (t *Topology) Link(a, b Coordinate) (*Link, bool) {
	if !t.Contains(a) || !t.Contains(b) || !Adjacent(a, b) {
		return nil, false
	}

	i, ok := t.linkIndex[MakeLinkKey(t.Index(a), t.Index(b))]
	if !ok {
		return nil, false
	}

	return &t.links[i], true
}

// LinkAt returns the i-th link, in creation order.
func (t *Topology) LinkAt(i int) *Link {
	return &t.links[i]
}

// Neighbors returns the in-bounds neighbors of c in direction priority order.
func (t *Topology) Neighbors(c Coordinate) []Coordinate {
	out := make([]Coordinate, 0, len(AllDirections))
	for _, d := range AllDirections {
		n := c.Add(d)
		if t.Contains(n) {
			out = append(out, n)
		}
	}

	return out
}

// ResetLoad clears the per-cycle load counter of every router.
func (t *Topology) ResetLoad() {
	for i := range t.routers {
		t.routers[i].Load = 0
	}
}

// CountFaults returns the number of faulty routers and faulty links.
func (t *Topology) CountFaults() (routers, links int) {
	for i := range t.routers {
		if !t.routers[i].IsHealthy() {
			routers++
		}
	}

	for i := range t.links {
		if !t.links[i].IsHealthy() {
			links++
		}
	}

	return routers, links
}
