package messaging

import (
	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/sim"
)

// Packet is the unit that travels through the mesh. A packet is resident in
// exactly one router queue while it is in flight.
type Packet struct {
	ID         string
	Src, Dst   mesh.Coordinate
	InjectedAt sim.VTimeInCycle

	// Path lists every coordinate visited so far, starting with Src.
	Path    []mesh.Coordinate
	Current mesh.Coordinate

	// HopBudget is the number of hops the packet may still take.
	HopBudget int

	// ReadyAt is the first cycle at which the packet may leave Current.
	ReadyAt sim.VTimeInCycle

	// Size is the number of flits of the packet. It weighs the load the
	// packet puts on routers and links.
	Size int
}

// PacketBuilder can build packets.
type PacketBuilder struct {
	id         string
	src, dst   mesh.Coordinate
	injectedAt sim.VTimeInCycle
	readyAt    sim.VTimeInCycle
	hopBudget  int
	size       int
}

// WithID sets the ID of the packet to build.
func (b PacketBuilder) WithID(id string) PacketBuilder {
	b.id = id
	return b
}

// WithSrc sets the source coordinate of the packet to build.
func (b PacketBuilder) WithSrc(c mesh.Coordinate) PacketBuilder {
	b.src = c
	return b
}

// WithDst sets the destination coordinate of the packet to build.
func (b PacketBuilder) WithDst(c mesh.Coordinate) PacketBuilder {
	b.dst = c
	return b
}

// WithInjectedAt sets the cycle at which the packet enters the network.
func (b PacketBuilder) WithInjectedAt(t sim.VTimeInCycle) PacketBuilder {
	b.injectedAt = t
	return b
}

// WithReadyAt sets the first cycle at which the packet may leave its source.
func (b PacketBuilder) WithReadyAt(t sim.VTimeInCycle) PacketBuilder {
	b.readyAt = t
	return b
}

// WithHopBudget sets the number of hops the packet may take.
func (b PacketBuilder) WithHopBudget(n int) PacketBuilder {
	b.hopBudget = n
	return b
}

// WithSize sets the number of flits of the packet to build.
func (b PacketBuilder) WithSize(flits int) PacketBuilder {
	b.size = flits
	return b
}

// Build creates the packet. Packets are one flit long unless a size is set.
func (b PacketBuilder) Build() *Packet {
	if b.id == "" {
		panic("packet id must not be empty")
	}

	size := b.size
	if size == 0 {
		size = 1
	}

	if size < 0 {
		panic("packet size must not be negative")
	}

	return &Packet{
		ID:         b.id,
		Src:        b.src,
		Dst:        b.dst,
		InjectedAt: b.injectedAt,
		Path:       []mesh.Coordinate{b.src},
		Current:    b.src,
		HopBudget:  b.hopBudget,
		ReadyAt:    b.readyAt,
		Size:       size,
	}
}

// Hops returns the number of hops taken so far.
func (p *Packet) Hops() int {
	return len(p.Path) - 1
}

// Visited tells if the packet has already been at c.
func (p *Packet) Visited(c mesh.Coordinate) bool {
	for _, v := range p.Path {
		if v == c {
			return true
		}
	}

	return false
}

// Arrived tells if the packet is at its destination.
func (p *Packet) Arrived() bool {
	return p.Current == p.Dst
}

// MoveTo records a hop to next. The packet may leave next at readyAt.
func (p *Packet) MoveTo(next mesh.Coordinate, readyAt sim.VTimeInCycle) {
	p.Path = append(p.Path, next)
	p.Current = next
	p.HopBudget--
	p.ReadyAt = readyAt
}

// Latency returns the number of cycles between injection and now.
func (p *Packet) Latency(now sim.VTimeInCycle) sim.VTimeInCycle {
	return now - p.InjectedAt
}
