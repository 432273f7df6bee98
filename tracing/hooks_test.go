package tracing

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/sim"
	"github.com/sarchlab/faultnoc/simulation"
)

var _ = Describe("LogHook", func() {
	var (
		buf  *bytes.Buffer
		hook *LogHook
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		hook = NewLogHook(zerolog.New(buf).Level(zerolog.TraceLevel))
	})

	It("should log packet moves", func() {
		p := makePacket("3", 0)
		d := hop(p, mesh.Coordinate{Row: 1}, true)

		hook.Func(sim.HookCtx{
			Pos: simulation.HookPosPacketMoved, Item: p, Detail: d})

		Expect(buf.String()).To(ContainSubstring(`"level":"trace"`))
		Expect(buf.String()).To(ContainSubstring(`"event":"PacketMoved"`))
		Expect(buf.String()).To(ContainSubstring(`"packet":"3"`))
		Expect(buf.String()).To(ContainSubstring(`"from":"(0,0,0)"`))
		Expect(buf.String()).To(ContainSubstring(`"at":"(1,0,0)"`))
		Expect(buf.String()).To(ContainSubstring(`"backup":true`))
	})

	It("should log deliveries and drops", func() {
		p := makePacket("4", 0)

		hook.Func(sim.HookCtx{
			Pos: simulation.HookPosPacketDelivered, Item: p,
			Detail: sim.VTimeInCycle(6)})
		hook.Func(sim.HookCtx{
			Pos: simulation.HookPosPacketDropped, Item: p,
			Detail: errors.New("no way")})

		Expect(buf.String()).To(ContainSubstring(`"latency":6`))
		Expect(buf.String()).To(ContainSubstring(`"error":"no way"`))
	})

	It("should log snapshots and throttled routers at debug level", func() {
		hook = NewLogHook(zerolog.New(buf).Level(zerolog.DebugLevel))

		hook.Func(sim.HookCtx{
			Pos: simulation.HookPosPacketInjected, Item: makePacket("5", 0)})
		Expect(buf.Len()).To(BeZero())

		hook.Func(sim.HookCtx{
			Pos:  simulation.HookPosRouterThrottled,
			Item: mesh.Coordinate{Row: 1, Col: 2, Layer: 1}})
		hook.Func(sim.HookCtx{
			Pos:  simulation.HookPosCycleEnd,
			Item: metrics.Snapshot{Cycle: 12, Throughput: 3}})

		Expect(buf.String()).To(ContainSubstring(`"router":"(1,2,1)"`))
		Expect(buf.String()).To(ContainSubstring(`"cycle":12`))
		Expect(buf.String()).To(ContainSubstring(`"throughput":3`))
	})
})

var _ = Describe("TrafficCounter", func() {
	move := func(c *TrafficCounter, from, to mesh.Coordinate) {
		c.Func(sim.HookCtx{
			Pos:    simulation.HookPosPacketMoved,
			Detail: routing.Decision{Outcome: routing.Moved, From: from, To: to},
		})
	}

	a := mesh.Coordinate{Row: 0}
	b := mesh.Coordinate{Row: 1}
	c := mesh.Coordinate{Row: 1, Col: 1}

	It("should count both directions of a link together", func() {
		counter := NewTrafficCounter()

		move(counter, a, b)
		move(counter, b, a)
		move(counter, b, c)
		counter.Func(sim.HookCtx{Pos: simulation.HookPosPacketInjected})

		Expect(counter.Total()).To(Equal(uint64(3)))
		Expect(counter.Busiest(5)).To(Equal([]LinkTraffic{
			{Ends: [2]mesh.Coordinate{a, b}, Packets: 2},
			{Ends: [2]mesh.Coordinate{b, c}, Packets: 1},
		}))
	})

	It("should break ties by link position", func() {
		counter := NewTrafficCounter()

		move(counter, c, b)
		move(counter, a, b)

		Expect(counter.Busiest(1)).To(Equal([]LinkTraffic{
			{Ends: [2]mesh.Coordinate{a, b}, Packets: 1},
		}))
	})
})
