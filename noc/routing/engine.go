// Package routing decides, cycle by cycle, where every in-flight packet goes
// next. Packets follow dimension-order routing and fall back to a backup
// neighbor when the primary hop is blocked by a fault or a throttled router.
package routing

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/sim"
)

// ErrRouteNotFound is reported when neither the primary hop nor any backup
// neighbor can carry a packet.
var ErrRouteNotFound = errors.New("route not found")

// ErrHopBudgetExhausted is reported when a packet has used all of its hops
// without reaching its destination.
var ErrHopBudgetExhausted = errors.New("hop budget exhausted")

// Outcome is what happened to a packet in a cycle.
type Outcome int

// Outcomes of Advance.
const (
	// Stalled packets stay at their current router.
	Stalled Outcome = iota
	// Moved packets took one hop.
	Moved
	// Delivered packets reached their destination and leave the network.
	Delivered
	// Dropped packets leave the network without being delivered.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Stalled:
		return "stalled"
	case Moved:
		return "moved"
	case Delivered:
		return "delivered"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Decision describes the result of advancing one packet.
type Decision struct {
	Outcome Outcome

	// From and To are set when the packet moved.
	From, To mesh.Coordinate

	// Backup is true when the hop was chosen by the backup search.
	Backup bool

	// Err explains why a packet was dropped.
	Err error
}

// Engine advances packets.
type Engine struct {
	table         Table
	maxDetour     int
	linkLatency   int
	routerLatency int
}

// Builder can help building routing Engines.
type Builder struct {
	table         Table
	maxDetour     int
	linkLatency   int
	routerLatency int
}

// MakeBuilder creates a Builder with default configurations.
func MakeBuilder() Builder {
	return Builder{
		table:         NewTable(),
		maxDetour:     2,
		linkLatency:   1,
		routerLatency: 1,
	}
}

// WithTable sets the table that provides the primary hop.
func (b Builder) WithTable(t Table) Builder {
	b.table = t
	return b
}

// WithMaxDetour sets how much farther from the destination, in hops, a
// backup neighbor may be compared with the primary neighbor.
func (b Builder) WithMaxDetour(hops int) Builder {
	b.maxDetour = hops
	return b
}

// WithLinkLatency sets the link latency, in cycles.
func (b Builder) WithLinkLatency(cycles int) Builder {
	b.linkLatency = cycles
	return b
}

// WithRouterLatency sets the router latency, in cycles.
func (b Builder) WithRouterLatency(cycles int) Builder {
	b.routerLatency = cycles
	return b
}

// Build creates the Engine.
func (b Builder) Build() *Engine {
	if b.linkLatency < 1 || b.routerLatency < 1 {
		panic("latencies must be at least 1 cycle")
	}

	if b.maxDetour < 0 {
		panic("max detour must not be negative")
	}

	return &Engine{
		table:         b.table,
		maxDetour:     b.maxDetour,
		linkLatency:   b.linkLatency,
		routerLatency: b.routerLatency,
	}
}

// HopDelay is the number of cycles between a hop and the cycle at which the
// packet may leave the router it arrived at.
func (e *Engine) HopDelay() sim.VTimeInCycle {
	return sim.VTimeInCycle(e.linkLatency + e.routerLatency - 1)
}

// InjectionDelay is the number of cycles a packet spends in its source router
// before it may take its first hop.
func (e *Engine) InjectionDelay() sim.VTimeInCycle {
	return sim.VTimeInCycle(e.routerLatency)
}

// FaultFreeLatency is the latency of a packet that takes hops hops without
// ever stalling.
func (e *Engine) FaultFreeLatency(hops int) sim.VTimeInCycle {
	return e.InjectionDelay() + sim.VTimeInCycle(hops)*e.HopDelay()
}

// Advance moves p by at most one hop in cycle now. The decision is taken
// against view. When the packet moves, a slot is reserved in view and the
// packet's path is updated; moving the packet between queues is left to the
// caller.
func (e *Engine) Advance(
	view *HealthView,
	p *messaging.Packet,
	now sim.VTimeInCycle,
) Decision {
	if now < p.ReadyAt {
		return Decision{Outcome: Stalled}
	}

	if !view.RouterHealthy(p.Current) {
		return Decision{Outcome: Stalled}
	}

	if p.Arrived() {
		return Decision{Outcome: Delivered}
	}

	if p.HopBudget <= 0 {
		return Decision{
			Outcome: Dropped,
			Err: fmt.Errorf("packet %s at %s: %w",
				p.ID, p.Current, ErrHopBudgetExhausted),
		}
	}

	primary, _ := e.table.NextHop(p.Current, p.Dst)

	switch view.StatusFor(p.Current, primary, p.Size) {
	case HopAvailable:
		return e.commit(view, p, primary, now, false)
	case HopCongested:
		return Decision{Outcome: Stalled}
	}

	backup, err := e.FindBackupRoute(view, p, primary)
	if err != nil {
		return Decision{Outcome: Dropped, Err: err}
	}

	return e.commit(view, p, backup, now, true)
}

func (e *Engine) commit(
	view *HealthView,
	p *messaging.Packet,
	next mesh.Coordinate,
	now sim.VTimeInCycle,
	backup bool,
) Decision {
	from := p.Current

	view.Reserve(from, next, p.Size)
	p.MoveTo(next, now+e.HopDelay())

	return Decision{
		Outcome: Moved,
		From:    from,
		To:      next,
		Backup:  backup,
	}
}

// FindBackupRoute picks a neighbor of the packet's current router other than
// primary. A candidate must be available in view, must not be on the
// packet's path, must not be more than the max detour farther from the
// destination than primary, and must still reach the destination within the
// remaining hop budget. Among the candidates, the one closest to the
// destination over usable routers wins; ties go to the direction that comes
// first in dimension order.
func (e *Engine) FindBackupRoute(
	view *HealthView,
	p *messaging.Packet,
	primary mesh.Coordinate,
) (mesh.Coordinate, error) {
	topo := view.Topology()
	limit := mesh.Manhattan(primary, p.Dst) + e.maxDetour

	best := p.Current
	bestDistance := math.Inf(1)

	for _, d := range e.candidateOrder(p.Current, p.Dst) {
		n := p.Current.Add(d)
		if n == primary || !topo.Contains(n) || p.Visited(n) {
			continue
		}

		if view.StatusFor(p.Current, n, p.Size) != HopAvailable {
			continue
		}

		if mesh.Manhattan(n, p.Dst) > limit {
			continue
		}

		distance := view.AvailableDistance(n, p.Dst)
		if 1+distance > float64(p.HopBudget) {
			continue
		}

		if distance < bestDistance {
			best = n
			bestDistance = distance
		}
	}

	if math.IsInf(bestDistance, 1) {
		return p.Current, fmt.Errorf("packet %s at %s to %s: %w",
			p.ID, p.Current, p.Dst, ErrRouteNotFound)
	}

	return best, nil
}

// candidateOrder lists the directions with the ones that reduce the
// remaining offset first, each group in row, column, layer priority.
func (e *Engine) candidateOrder(current, dst mesh.Coordinate) []mesh.Direction {
	toward := make([]mesh.Direction, 0, len(mesh.AllDirections))
	away := make([]mesh.Direction, 0, len(mesh.AllDirections))

	d0 := mesh.Manhattan(current, dst)
	for _, d := range mesh.AllDirections {
		if mesh.Manhattan(current.Add(d), dst) < d0 {
			toward = append(toward, d)
		} else {
			away = append(away, d)
		}
	}

	return append(toward, away...)
}
