// Package tracing observes the packets of a simulation through hooks.
package tracing

import (
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
	"github.com/sarchlab/faultnoc/simulation"
)

// A Tracer follows packets from injection to delivery or drop.
type Tracer interface {
	StartPacket(p *messaging.Packet)
	StepPacket(p *messaging.Packet, d routing.Decision)
	EndPacket(p *messaging.Packet, err error)
}

// PacketFilter selects the packets that a tracer follows.
type PacketFilter func(p *messaging.Packet) bool

// AllPackets is a filter that selects every packet.
func AllPackets(*messaging.Packet) bool {
	return true
}

// CollectTrace lets the tracer collect the packet events of a domain.
func CollectTrace(domain sim.Hookable, tracer Tracer) {
	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook translates simulation hook positions to tracer calls.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case simulation.HookPosPacketInjected:
		h.t.StartPacket(ctx.Item.(*messaging.Packet))
	case simulation.HookPosPacketMoved:
		h.t.StepPacket(ctx.Item.(*messaging.Packet), ctx.Detail.(routing.Decision))
	case simulation.HookPosPacketDelivered:
		h.t.EndPacket(ctx.Item.(*messaging.Packet), nil)
	case simulation.HookPosPacketDropped:
		err, _ := ctx.Detail.(error)
		h.t.EndPacket(ctx.Item.(*messaging.Packet), err)
	}
}
