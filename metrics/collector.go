// Package metrics aggregates per-cycle latency, throughput and power into an
// ordered time series.
package metrics

import (
	"log"
	"math"

	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/sim"
)

// Snapshot is the record of one cycle.
type Snapshot struct {
	Cycle uint64

	// AvgLatency is the mean latency of the packets delivered in this cycle,
	// or 0 when none was delivered.
	AvgLatency float64

	// Throughput is the number of packets delivered in this cycle.
	Throughput int

	// TotalPower is the sum of the power of all routers, in watts.
	TotalPower float64

	Injected         int
	Dropped          int
	InFlight         int
	FaultyRouters    int
	FaultyLinks      int
	ThrottledRouters int
	MaxTemperature   float64
}

// CycleCounters carries the counts of a cycle that cannot be derived from the
// delivered packets or the router records.
type CycleCounters struct {
	Injected         int
	Dropped          int
	InFlight         int
	ThrottledRouters int
}

// Collector builds the series one cycle at a time.
type Collector struct {
	snapshots []Snapshot

	latencySum float64
	delivered  int
	finished   bool
}

// NewCollector creates a collector with room for numCycles snapshots.
func NewCollector(numCycles int) *Collector {
	return &Collector{
		snapshots: make([]Snapshot, 0, numCycles),
	}
}

// RecordCycle appends the snapshot of a cycle.
func (c *Collector) RecordCycle(
	cycle sim.VTimeInCycle,
	delivered []*messaging.Packet,
	topo *mesh.Topology,
	counters CycleCounters,
) Snapshot {
	if c.finished {
		log.Panic("cannot record a cycle after the series is finished")
	}

	s := Snapshot{
		Cycle:            uint64(cycle),
		Throughput:       len(delivered),
		Injected:         counters.Injected,
		Dropped:          counters.Dropped,
		InFlight:         counters.InFlight,
		ThrottledRouters: counters.ThrottledRouters,
		MaxTemperature:   math.Inf(-1),
	}

	latencySum := 0.0
	for _, p := range delivered {
		latencySum += float64(p.Latency(cycle))
	}

	if len(delivered) > 0 {
		s.AvgLatency = latencySum / float64(len(delivered))
	}

	for i := 0; i < topo.NumRouters(); i++ {
		r := topo.RouterAt(i)
		s.TotalPower += r.Power
		s.MaxTemperature = math.Max(s.MaxTemperature, r.Temperature)
	}

	s.FaultyRouters, s.FaultyLinks = topo.CountFaults()

	c.latencySum += latencySum
	c.delivered += len(delivered)
	c.snapshots = append(c.snapshots, s)

	return s
}

// Len returns the number of cycles recorded so far.
func (c *Collector) Len() int {
	return len(c.snapshots)
}

// Finish hands out the series. The collector cannot be used afterwards.
func (c *Collector) Finish() *Series {
	if c.finished {
		log.Panic("series already handed out")
	}

	c.finished = true

	s := &Series{
		snapshots:  c.snapshots,
		latencySum: c.latencySum,
		delivered:  c.delivered,
	}
	c.snapshots = nil

	return s
}
