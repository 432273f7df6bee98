package routing

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sarchlab/faultnoc/noc/mesh"
)

// ThrottleQuery reports whether a router refuses arriving packets because it
// is too hot.
type ThrottleQuery interface {
	IsThrottled(r *mesh.Router) bool
}

// HopStatus classifies a candidate hop.
type HopStatus int

// Hop statuses.
const (
	// HopAvailable means the hop can be taken in this cycle.
	HopAvailable HopStatus = iota

	// HopCongested means the target queue is full or the link has no
	// bandwidth left in this cycle. The hop may become available later.
	HopCongested

	// HopBlocked means the target router is faulty or throttled, or the
	// link is faulty.
	HopBlocked
)

func (s HopStatus) String() string {
	switch s {
	case HopAvailable:
		return "available"
	case HopCongested:
		return "congested"
	default:
		return "blocked"
	}
}

// HealthView is a per-cycle snapshot of the state that routing decisions
// depend on. Every packet advanced in a cycle is routed against the same
// view, so the order in which packets are processed does not matter.
type HealthView struct {
	topo *mesh.Topology

	routerHealthy []bool
	throttled     []bool
	linkHealthy   map[mesh.LinkKey]bool
	linkBandwidth map[mesh.LinkKey]int
	linkUsage     map[mesh.LinkKey]int
	occupancy     []int
	capacity      []int
	incoming      []int

	distances map[int]path.Shortest
	graph     *simple.UndirectedGraph
}

// Snapshot captures the health, throttling and queue occupancy of every
// router and the health of every link.
func Snapshot(t *mesh.Topology, throttle ThrottleQuery) *HealthView {
	n := t.NumRouters()
	v := &HealthView{
		topo:          t,
		routerHealthy: make([]bool, n),
		throttled:     make([]bool, n),
		linkHealthy:   make(map[mesh.LinkKey]bool, t.NumLinks()),
		linkBandwidth: make(map[mesh.LinkKey]int),
		linkUsage:     make(map[mesh.LinkKey]int),
		occupancy:     make([]int, n),
		capacity:      make([]int, n),
		incoming:      make([]int, n),
		distances:     make(map[int]path.Shortest),
	}

	for i := 0; i < n; i++ {
		r := t.RouterAt(i)
		v.routerHealthy[i] = r.IsHealthy()
		v.throttled[i] = throttle.IsThrottled(r)
		v.occupancy[i] = r.Queue.Size()
		v.capacity[i] = r.Queue.Capacity()
	}

	for i := 0; i < t.NumLinks(); i++ {
		l := t.LinkAt(i)
		v.linkHealthy[l.Key] = l.IsHealthy()

		if l.Bandwidth > 0 {
			v.linkBandwidth[l.Key] = l.Bandwidth
		}
	}

	return v
}

// Topology returns the topology the view was taken from.
func (v *HealthView) Topology() *mesh.Topology {
	return v.topo
}

// RouterHealthy tells if the router at c was healthy when the view was taken.
func (v *HealthView) RouterHealthy(c mesh.Coordinate) bool {
	return v.routerHealthy[v.topo.Index(c)]
}

// Throttled tells if the router at c was throttled when the view was taken.
func (v *HealthView) Throttled(c mesh.Coordinate) bool {
	return v.throttled[v.topo.Index(c)]
}

// LinkHealthy tells if the link between adjacent a and b was healthy.
func (v *HealthView) LinkHealthy(a, b mesh.Coordinate) bool {
	key := mesh.MakeLinkKey(v.topo.Index(a), v.topo.Index(b))
	return v.linkHealthy[key]
}

// Enterable tells if new packets may arrive at c: the router is healthy and
// not throttled.
func (v *HealthView) Enterable(c mesh.Coordinate) bool {
	i := v.topo.Index(c)
	return v.routerHealthy[i] && !v.throttled[i]
}

// Status classifies the hop of a single-flit packet from one router to an
// adjacent one.
func (v *HealthView) Status(from, to mesh.Coordinate) HopStatus {
	return v.StatusFor(from, to, 1)
}

// StatusFor classifies the hop of a packet of the given number of flits. A
// link that carries nothing yet in this cycle accepts a packet of any size.
func (v *HealthView) StatusFor(from, to mesh.Coordinate, flits int) HopStatus {
	if !v.topo.Contains(to) || !mesh.Adjacent(from, to) {
		return HopBlocked
	}

	if !v.Enterable(to) || !v.LinkHealthy(from, to) {
		return HopBlocked
	}

	i := v.topo.Index(to)
	if v.occupancy[i]+v.incoming[i] >= v.capacity[i] {
		return HopCongested
	}

	key := mesh.MakeLinkKey(v.topo.Index(from), i)
	if bw, limited := v.linkBandwidth[key]; limited {
		used := v.linkUsage[key]
		if used > 0 && used+flits > bw {
			return HopCongested
		}
	}

	return HopAvailable
}

// Reserve books a slot in the queue at to, and flits of the bandwidth of the
// link from from, for a packet crossing in this cycle.
func (v *HealthView) Reserve(from, to mesh.Coordinate, flits int) {
	i := v.topo.Index(to)
	v.incoming[i]++
	v.linkUsage[mesh.MakeLinkKey(v.topo.Index(from), i)] += flits
}

// LinkUsage returns the flits booked on the link between a and b in this
// cycle.
func (v *HealthView) LinkUsage(a, b mesh.Coordinate) int {
	return v.linkUsage[mesh.MakeLinkKey(v.topo.Index(a), v.topo.Index(b))]
}

// AvailableDistance returns the number of hops from c to dst over routers and
// links that are usable in this view, or +Inf if dst cannot be reached.
func (v *HealthView) AvailableDistance(c, dst mesh.Coordinate) float64 {
	if c == dst {
		return 0
	}

	if !v.Enterable(dst) || !v.Enterable(c) {
		return math.Inf(1)
	}

	dstIdx := v.topo.Index(dst)

	shortest, ok := v.distances[dstIdx]
	if !ok {
		shortest = path.DijkstraFrom(simple.Node(dstIdx), v.availableGraph())
		v.distances[dstIdx] = shortest
	}

	return shortest.WeightTo(int64(v.topo.Index(c)))
}

func (v *HealthView) availableGraph() *simple.UndirectedGraph {
	if v.graph != nil {
		return v.graph
	}

	g := simple.NewUndirectedGraph()

	for i := range v.routerHealthy {
		if v.routerHealthy[i] && !v.throttled[i] {
			g.AddNode(simple.Node(i))
		}
	}

	for key, healthy := range v.linkHealthy {
		if !healthy {
			continue
		}

		if g.Node(int64(key.A)) == nil || g.Node(int64(key.B)) == nil {
			continue
		}

		g.SetEdge(simple.Edge{F: simple.Node(key.A), T: simple.Node(key.B)})
	}

	v.graph = g

	return g
}
