package tracing

import (
	"errors"
	"sync"

	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
)

// PacketCountTracer counts packets, hops and drop reasons, and accumulates
// the latency of the delivered packets.
type PacketCountTracer struct {
	timeTeller sim.TimeTeller
	filter     PacketFilter

	lock       sync.Mutex
	inflight   map[string]*messaging.Packet
	started    uint64
	delivered  uint64
	dropped    uint64
	hops       uint64
	backupHops uint64
	reasons    map[error]uint64

	totalLatency sim.VTimeInCycle
	maxLatency   sim.VTimeInCycle
}

// Drop reasons that are counted separately.
var countedReasons = []error{
	routing.ErrRouteNotFound,
	routing.ErrHopBudgetExhausted,
}

// NewPacketCountTracer creates a new PacketCountTracer.
func NewPacketCountTracer(
	timeTeller sim.TimeTeller,
	filter PacketFilter,
) *PacketCountTracer {
	return &PacketCountTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]*messaging.Packet),
		reasons:    make(map[error]uint64),
	}
}

// StartPacket starts following a packet if the filter selects it.
func (t *PacketCountTracer) StartPacket(p *messaging.Packet) {
	if !t.filter(p) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.inflight[p.ID] = p
	t.started++
}

// StepPacket counts a hop.
func (t *PacketCountTracer) StepPacket(p *messaging.Packet, d routing.Decision) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflight[p.ID]; !ok {
		return
	}

	t.hops++
	if d.Backup {
		t.backupHops++
	}
}

// EndPacket counts a delivery when err is nil and a drop otherwise.
func (t *PacketCountTracer) EndPacket(p *messaging.Packet, err error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflight[p.ID]; !ok {
		return
	}

	delete(t.inflight, p.ID)

	if err != nil {
		t.dropped++
		t.reasons[reasonOf(err)]++

		return
	}

	latency := p.Latency(t.timeTeller.CurrentTime())
	t.delivered++
	t.totalLatency += latency
	t.maxLatency = max(t.maxLatency, latency)
}

func reasonOf(err error) error {
	for _, reason := range countedReasons {
		if errors.Is(err, reason) {
			return reason
		}
	}

	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}

	return err
}

// Started returns the number of packets followed.
func (t *PacketCountTracer) Started() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.started
}

// Delivered returns the number of followed packets that were delivered.
func (t *PacketCountTracer) Delivered() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.delivered
}

// Dropped returns the number of followed packets that were dropped.
func (t *PacketCountTracer) Dropped() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.dropped
}

// DropCount returns the number of drops caused by the given error.
func (t *PacketCountTracer) DropCount(reason error) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.reasons[reason]
}

// Hops returns the number of hops taken and how many of them were backup
// hops.
func (t *PacketCountTracer) Hops() (total, backup uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.hops, t.backupHops
}

// InFlight returns the number of followed packets not yet delivered or
// dropped.
func (t *PacketCountTracer) InFlight() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflight)
}

// AverageLatency returns the mean latency of the delivered packets.
func (t *PacketCountTracer) AverageLatency() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.delivered == 0 {
		return 0
	}

	return float64(t.totalLatency) / float64(t.delivered)
}

// MaxLatency returns the longest latency of a delivered packet.
func (t *PacketCountTracer) MaxLatency() sim.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxLatency
}
