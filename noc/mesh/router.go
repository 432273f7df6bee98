package mesh

import (
	"fmt"

	"github.com/sarchlab/faultnoc/sim"
)

// Health tells whether a router or a link can transport packets.
type Health int

// Health states.
const (
	Healthy Health = iota
	Faulty
)

func (h Health) String() string {
	if h == Faulty {
		return "faulty"
	}

	return "healthy"
}

// Router is the per-node record owned by the Topology.
type Router struct {
	Coord       Coordinate
	Health      Health
	Power       float64
	Temperature float64

	// Queue holds the packets that are resident at this router.
	Queue sim.Buffer

	// Load counts the flits that occupied the router during the current
	// cycle. It is reset by the topology at the start of each cycle.
	Load int

	// FanSpeed is the level of the router's cooling fan. Zero is off.
	FanSpeed int
}

func newRouter(c Coordinate, bufferSize int, power, temperature float64) Router {
	return Router{
		Coord:       c,
		Health:      Healthy,
		Power:       power,
		Temperature: temperature,
		Queue: sim.NewBuffer(
			fmt.Sprintf("Router[%d][%d][%d].Queue", c.Row, c.Col, c.Layer),
			bufferSize,
		),
	}
}

// Name returns the hierarchical name of the router.
func (r *Router) Name() string {
	return fmt.Sprintf("Router[%d][%d][%d]", r.Coord.Row, r.Coord.Col, r.Coord.Layer)
}

// IsHealthy tells if the router is healthy.
func (r *Router) IsHealthy() bool {
	return r.Health == Healthy
}
