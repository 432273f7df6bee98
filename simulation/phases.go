package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
)

// ErrSourceUnavailable is reported when a packet cannot enter the network
// because its source router is faulty or its queue is full.
var ErrSourceUnavailable = errors.New("source router unavailable")

// Phase names, in execution order.
const (
	PhaseFaultInjection = "FaultInjection"
	PhaseAdmission      = "PacketAdmission"
	PhaseAdvance        = "PacketAdvance"
	PhasePowerThermal   = "PowerThermal"
	PhaseMetrics        = "Metrics"
)

type phase struct {
	name string
	tick func(now sim.VTimeInCycle) error
}

func (p phase) Name() string {
	return p.name
}

func (p phase) Tick(now sim.VTimeInCycle) error {
	return p.tick(now)
}

func (s *Simulation) registerPhases() {
	s.engine.RegisterPhase(phase{PhaseFaultInjection, s.injectFaults})
	s.engine.RegisterPhase(phase{PhaseAdmission, s.admitPackets})
	s.engine.RegisterPhase(phase{PhaseAdvance, s.advancePackets})
	s.engine.RegisterPhase(phase{PhasePowerThermal, s.updatePowerAndTemperature})
	s.engine.RegisterPhase(phase{PhaseMetrics, s.recordCycle})
}

func (s *Simulation) injectFaults(now sim.VTimeInCycle) error {
	c := s.ctx

	c.Topology.ResetLoad()

	report := c.Injector.InjectFaults(c.Topology, c.Config.FaultProbability)
	if report.NewlyFaulty > 0 || report.Recovered > 0 {
		s.logger.Trace().
			Uint64("cycle", uint64(now)).
			Int("newly_faulty", report.NewlyFaulty).
			Int("recovered", report.Recovered).
			Int("faulty_routers", report.FaultyRouters).
			Int("faulty_links", report.FaultyLinks).
			Msg("faults sampled")
	}

	return nil
}

// numToAdmit returns the integer part of the injection rate, plus one with a
// probability equal to the fractional part.
func (s *Simulation) numToAdmit() int {
	rate := s.ctx.Config.PacketInjectionRate
	whole, frac := math.Modf(rate)

	n := int(whole)
	if frac > 0 && s.ctx.Rand.Float64() < frac {
		n++
	}

	return n
}

func (s *Simulation) admitPackets(now sim.VTimeInCycle) error {
	c := s.ctx
	numRouters := c.Topology.NumRouters()

	n := s.numToAdmit()
	if numRouters < 2 {
		return nil
	}

	for i := 0; i < n; i++ {
		srcIdx := c.Rand.IntN(numRouters)

		dstIdx := c.Rand.IntN(numRouters - 1)
		if dstIdx >= srcIdx {
			dstIdx++
		}

		src := c.Topology.CoordinateOf(srcIdx)
		dst := c.Topology.CoordinateOf(dstIdx)

		p := messaging.PacketBuilder{}.
			WithID(c.IDs.Generate()).
			WithSrc(src).
			WithDst(dst).
			WithInjectedAt(now).
			WithReadyAt(now + c.Routing.InjectionDelay()).
			WithHopBudget(mesh.Manhattan(src, dst) + c.Config.HopSlack).
			WithSize(c.Config.PacketSize).
			Build()

		s.admit(p)
	}

	return nil
}

func (s *Simulation) admit(p *messaging.Packet) {
	c := s.ctx

	c.Totals.Injected++
	c.cycle.injected++
	s.invoke(HookPosPacketInjected, p, nil)

	r := c.Topology.Router(p.Src)
	if !r.IsHealthy() || !r.Queue.CanPush() {
		err := fmt.Errorf("packet %s at %s: %w", p.ID, p.Src, ErrSourceUnavailable)
		c.Totals.SourceUnavailable++
		s.drop(p, err)

		return
	}

	r.Queue.Push(p)
	c.InFlight++
}

type stagedMove struct {
	to     int
	packet *messaging.Packet
}

func (s *Simulation) advancePackets(now sim.VTimeInCycle) error {
	c := s.ctx
	topo := c.Topology

	c.View = routing.Snapshot(topo, c.Thermal)

	staying := make([][]*messaging.Packet, topo.NumRouters())
	var moves []stagedMove

	for i := 0; i < topo.NumRouters(); i++ {
		r := topo.RouterAt(i)

		for r.Queue.Size() > 0 {
			p := r.Queue.Pop().(*messaging.Packet)
			r.Load += p.Size

			d := c.Routing.Advance(c.View, p, now)

			switch d.Outcome {
			case routing.Stalled:
				staying[i] = append(staying[i], p)
			case routing.Moved:
				moves = append(moves, stagedMove{to: topo.Index(d.To), packet: p})
				s.countHop(p, d)
			case routing.Delivered:
				s.deliver(p, now)
			case routing.Dropped:
				s.countDrop(d.Err)
				s.drop(p, d.Err)
			}
		}
	}

	for i, packets := range staying {
		q := topo.RouterAt(i).Queue
		for _, p := range packets {
			q.Push(p)
		}
	}

	for _, m := range moves {
		r := topo.RouterAt(m.to)
		r.Queue.Push(m.packet)
		r.Load += m.packet.Size
	}

	return nil
}

func (s *Simulation) countHop(p *messaging.Packet, d routing.Decision) {
	s.ctx.Totals.Hops++
	if d.Backup {
		s.ctx.Totals.BackupHops++
	}

	s.invoke(HookPosPacketMoved, p, d)
}

func (s *Simulation) countDrop(err error) {
	switch {
	case errors.Is(err, routing.ErrRouteNotFound):
		s.ctx.Totals.RouteNotFound++
	case errors.Is(err, routing.ErrHopBudgetExhausted):
		s.ctx.Totals.HopBudgetExhausted++
	}
}

func (s *Simulation) deliver(p *messaging.Packet, now sim.VTimeInCycle) {
	c := s.ctx

	c.InFlight--
	c.Totals.Delivered++
	c.cycle.delivered = append(c.cycle.delivered, p)

	s.invoke(HookPosPacketDelivered, p, p.Latency(now))
}

// drop removes a packet from the run. Packets that never entered a queue are
// not counted as in flight.
func (s *Simulation) drop(p *messaging.Packet, err error) {
	c := s.ctx

	if !errors.Is(err, ErrSourceUnavailable) {
		c.InFlight--
	}

	c.Totals.Dropped++
	c.cycle.dropped++

	s.logger.Debug().
		Str("packet", p.ID).
		Stringer("src", p.Src).
		Stringer("dst", p.Dst).
		Stringer("at", p.Current).
		Err(err).
		Msg("packet dropped")

	s.invoke(HookPosPacketDropped, p, err)
}

func (s *Simulation) updatePowerAndTemperature(now sim.VTimeInCycle) error {
	c := s.ctx

	summary := c.Thermal.UpdateAll(c.Topology)
	c.cycle.throttled = summary.Throttled

	s.logger.Trace().
		Uint64("cycle", uint64(now)).
		Float64("power", summary.TotalPower).
		Int("active", summary.Active).
		Int("fans", summary.FansRunning).
		Msg("thermal update")

	for _, coord := range summary.NewlyThrottled {
		s.logger.Debug().
			Uint64("cycle", uint64(now)).
			Stringer("router", coord).
			Float64("temperature", c.Topology.Router(coord).Temperature).
			Msg("router throttled")

		s.invoke(HookPosRouterThrottled, coord, nil)
	}

	return nil
}

func (s *Simulation) recordCycle(now sim.VTimeInCycle) error {
	c := s.ctx

	snapshot := c.Metrics.RecordCycle(now, c.cycle.delivered, c.Topology,
		metrics.CycleCounters{
			Injected:         c.cycle.injected,
			Dropped:          c.cycle.dropped,
			InFlight:         c.InFlight,
			ThrottledRouters: c.cycle.throttled,
		})

	if s.recorder != nil {
		s.recorder.InsertData(s.tableName, snapshot)
	}

	c.cycle = cycleState{}

	s.invoke(HookPosCycleEnd, snapshot, nil)

	return nil
}
