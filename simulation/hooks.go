package simulation

import (
	"github.com/sarchlab/faultnoc/sim"
)

// Hook positions invoked by a Simulation. The item of the packet positions is
// the *messaging.Packet; the detail of HookPosPacketDropped is the error that
// caused the drop.
var (
	HookPosPacketInjected  = &sim.HookPos{Name: "PacketInjected"}
	HookPosPacketMoved     = &sim.HookPos{Name: "PacketMoved"}
	HookPosPacketDelivered = &sim.HookPos{Name: "PacketDelivered"}
	HookPosPacketDropped   = &sim.HookPos{Name: "PacketDropped"}

	// HookPosRouterThrottled carries the mesh.Coordinate of a router that
	// crossed the critical temperature.
	HookPosRouterThrottled = &sim.HookPos{Name: "RouterThrottled"}

	// HookPosCycleEnd carries the metrics.Snapshot of the cycle.
	HookPosCycleEnd = &sim.HookPos{Name: "CycleEnd"}
)

func (s *Simulation) invoke(pos *sim.HookPos, item, detail any) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
