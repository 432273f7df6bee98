package tracing

import (
	"github.com/rs/zerolog"

	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
	"github.com/sarchlab/faultnoc/simulation"
)

// LogHook writes every hook event of a simulation to a logger at trace
// level, and every cycle snapshot at debug level.
type LogHook struct {
	logger zerolog.Logger
}

// NewLogHook creates a LogHook.
func NewLogHook(logger zerolog.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func logs the event.
func (h *LogHook) Func(ctx sim.HookCtx) {
	switch item := ctx.Item.(type) {
	case *messaging.Packet:
		h.logPacket(ctx, item)
	case mesh.Coordinate:
		h.logger.Debug().
			Str("event", ctx.Pos.Name).
			Stringer("router", item).
			Send()
	case metrics.Snapshot:
		h.logger.Debug().
			Uint64("cycle", item.Cycle).
			Int("throughput", item.Throughput).
			Float64("avg_latency", item.AvgLatency).
			Float64("total_power", item.TotalPower).
			Int("in_flight", item.InFlight).
			Int("faulty_routers", item.FaultyRouters).
			Int("faulty_links", item.FaultyLinks).
			Int("throttled_routers", item.ThrottledRouters).
			Msg("cycle")
	}
}

func (h *LogHook) logPacket(ctx sim.HookCtx, p *messaging.Packet) {
	e := h.logger.Trace().
		Str("event", ctx.Pos.Name).
		Str("packet", p.ID).
		Stringer("src", p.Src).
		Stringer("dst", p.Dst).
		Stringer("at", p.Current)

	switch ctx.Pos {
	case simulation.HookPosPacketMoved:
		d := ctx.Detail.(routing.Decision)
		e = e.Stringer("from", d.From).Bool("backup", d.Backup)
	case simulation.HookPosPacketDelivered:
		e = e.Uint64("latency", uint64(ctx.Detail.(sim.VTimeInCycle)))
	case simulation.HookPosPacketDropped:
		if err, ok := ctx.Detail.(error); ok {
			e = e.Err(err)
		}
	}

	e.Send()
}
