package tracing

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
	"github.com/sarchlab/faultnoc/simulation"
)

func makePacket(id string, injectedAt sim.VTimeInCycle) *messaging.Packet {
	return messaging.PacketBuilder{}.
		WithID(id).
		WithSrc(mesh.Coordinate{Row: 0, Col: 0, Layer: 0}).
		WithDst(mesh.Coordinate{Row: 2, Col: 1, Layer: 0}).
		WithInjectedAt(injectedAt).
		WithReadyAt(injectedAt + 1).
		WithHopBudget(10).
		Build()
}

func hop(p *messaging.Packet, to mesh.Coordinate, backup bool) routing.Decision {
	d := routing.Decision{
		Outcome: routing.Moved,
		From:    p.Current,
		To:      to,
		Backup:  backup,
	}
	p.MoveTo(to, 0)

	return d
}

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockTracer
		domain   *sim.HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
		domain = sim.NewHookableBase()

		CollectTrace(domain, tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should translate packet events", func() {
		p := makePacket("1", 0)
		d := routing.Decision{Outcome: routing.Moved, Backup: true}
		err := errors.New("lost")

		gomock.InOrder(
			tracer.EXPECT().StartPacket(p),
			tracer.EXPECT().StepPacket(p, d),
			tracer.EXPECT().EndPacket(p, nil),
			tracer.EXPECT().EndPacket(p, err),
		)

		domain.InvokeHook(sim.HookCtx{
			Pos: simulation.HookPosPacketInjected, Item: p})
		domain.InvokeHook(sim.HookCtx{
			Pos: simulation.HookPosPacketMoved, Item: p, Detail: d})
		domain.InvokeHook(sim.HookCtx{
			Pos: simulation.HookPosPacketDelivered, Item: p,
			Detail: sim.VTimeInCycle(3)})
		domain.InvokeHook(sim.HookCtx{
			Pos: simulation.HookPosPacketDropped, Item: p, Detail: err})
	})

	It("should ignore other events", func() {
		domain.InvokeHook(sim.HookCtx{Pos: simulation.HookPosCycleEnd})
		domain.InvokeHook(sim.HookCtx{Pos: sim.HookPosAfterCycle})
	})
})

var _ = Describe("PacketCountTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		t          *PacketCountTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		t = NewPacketCountTracer(timeTeller, AllPackets)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should count deliveries and latency", func() {
		p1 := makePacket("1", 2)
		p2 := makePacket("2", 4)

		t.StartPacket(p1)
		t.StartPacket(p2)
		t.StepPacket(p1, hop(p1, mesh.Coordinate{Row: 1}, false))
		t.StepPacket(p1, hop(p1, mesh.Coordinate{Row: 1, Col: 1}, true))

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(8))
		t.EndPacket(p1, nil)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(14))
		t.EndPacket(p2, nil)

		total, backup := t.Hops()
		Expect(total).To(Equal(uint64(2)))
		Expect(backup).To(Equal(uint64(1)))
		Expect(t.Started()).To(Equal(uint64(2)))
		Expect(t.Delivered()).To(Equal(uint64(2)))
		Expect(t.InFlight()).To(BeZero())
		Expect(t.AverageLatency()).To(Equal(8.0))
		Expect(t.MaxLatency()).To(Equal(sim.VTimeInCycle(10)))
	})

	It("should count drops by reason", func() {
		packets := []*messaging.Packet{
			makePacket("1", 0), makePacket("2", 0), makePacket("3", 0),
		}
		for _, p := range packets {
			t.StartPacket(p)
		}

		t.EndPacket(packets[0],
			fmt.Errorf("packet 1: %w", routing.ErrRouteNotFound))
		t.EndPacket(packets[1],
			fmt.Errorf("packet 2: %w", simulation.ErrSourceUnavailable))
		t.EndPacket(packets[2],
			fmt.Errorf("packet 3: %w", routing.ErrRouteNotFound))

		Expect(t.Dropped()).To(Equal(uint64(3)))
		Expect(t.Delivered()).To(BeZero())
		Expect(t.DropCount(routing.ErrRouteNotFound)).To(Equal(uint64(2)))
		Expect(t.DropCount(simulation.ErrSourceUnavailable)).To(Equal(uint64(1)))
		Expect(t.DropCount(routing.ErrHopBudgetExhausted)).To(BeZero())
		Expect(t.AverageLatency()).To(BeZero())
	})

	It("should only follow the selected packets", func() {
		t = NewPacketCountTracer(timeTeller, func(p *messaging.Packet) bool {
			return p.ID == "2"
		})

		p1 := makePacket("1", 0)
		p2 := makePacket("2", 0)

		t.StartPacket(p1)
		t.StartPacket(p2)
		t.StepPacket(p1, hop(p1, mesh.Coordinate{Row: 1}, false))
		t.EndPacket(p1, nil)

		total, _ := t.Hops()
		Expect(total).To(BeZero())
		Expect(t.Started()).To(Equal(uint64(1)))
		Expect(t.Delivered()).To(BeZero())
		Expect(t.InFlight()).To(Equal(1))
	})
})

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		backend    *MockDataRecorder
		t          *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		backend = NewMockDataRecorder(mockCtrl)

		backend.EXPECT().CreateTable("packets", PacketRecord{})
		t = NewDBTracer(timeTeller, backend, "packets")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should write a record for a delivered packet", func() {
		p := makePacket("7", 3)

		t.StartPacket(p)
		t.StepPacket(p, hop(p, mesh.Coordinate{Row: 1}, true))
		t.StepPacket(p, hop(p, mesh.Coordinate{Row: 2}, false))
		t.StepPacket(p, hop(p, mesh.Coordinate{Row: 2, Col: 1}, true))

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(9))
		backend.EXPECT().InsertData("packets", PacketRecord{
			ID:         "7",
			Src:        "(0,0,0)",
			Dst:        "(2,1,0)",
			InjectedAt: 3,
			EndedAt:    9,
			Hops:       3,
			BackupHops: 2,
			Delivered:  true,
		})

		t.EndPacket(p, nil)
	})

	It("should write the reason of a drop", func() {
		p := makePacket("8", 0)
		err := fmt.Errorf("packet 8: %w", routing.ErrHopBudgetExhausted)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(5))
		backend.EXPECT().InsertData("packets", PacketRecord{
			ID:      "8",
			Src:     "(0,0,0)",
			Dst:     "(2,1,0)",
			EndedAt: 5,
			Reason:  err.Error(),
		})

		t.EndPacket(p, err)
	})
})
