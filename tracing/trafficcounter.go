package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
	"github.com/sarchlab/faultnoc/simulation"
)

// LinkTraffic is the number of packets that crossed a link.
type LinkTraffic struct {
	Ends    [2]mesh.Coordinate
	Packets uint64
}

// A TrafficCounter counts the packets that cross every link.
type TrafficCounter struct {
	lock    sync.Mutex
	traffic map[[2]mesh.Coordinate]uint64
	total   uint64
}

// NewTrafficCounter creates a TrafficCounter.
func NewTrafficCounter() *TrafficCounter {
	return &TrafficCounter{
		traffic: make(map[[2]mesh.Coordinate]uint64),
	}
}

// Func adds a moved packet to the counter of its link.
func (c *TrafficCounter) Func(ctx sim.HookCtx) {
	if ctx.Pos != simulation.HookPosPacketMoved {
		return
	}

	d := ctx.Detail.(routing.Decision)

	c.lock.Lock()
	defer c.lock.Unlock()

	c.traffic[linkEnds(d.From, d.To)]++
	c.total++
}

func linkEnds(a, b mesh.Coordinate) [2]mesh.Coordinate {
	if less(b, a) {
		a, b = b, a
	}

	return [2]mesh.Coordinate{a, b}
}

func less(a, b mesh.Coordinate) bool {
	if a.Layer != b.Layer {
		return a.Layer < b.Layer
	}

	if a.Col != b.Col {
		return a.Col < b.Col
	}

	return a.Row < b.Row
}

// Total returns the number of link traversals.
func (c *TrafficCounter) Total() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.total
}

// Busiest returns up to n links, the most used first.
func (c *TrafficCounter) Busiest(n int) []LinkTraffic {
	c.lock.Lock()
	defer c.lock.Unlock()

	list := make([]LinkTraffic, 0, len(c.traffic))
	for ends, packets := range c.traffic {
		list = append(list, LinkTraffic{Ends: ends, Packets: packets})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Packets != list[j].Packets {
			return list[i].Packets > list[j].Packets
		}

		if list[i].Ends[0] != list[j].Ends[0] {
			return less(list[i].Ends[0], list[j].Ends[0])
		}

		return less(list[i].Ends[1], list[j].Ends[1])
	})

	if len(list) > n {
		list = list[:n]
	}

	return list
}
