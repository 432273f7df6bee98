package metrics

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/sim"
)

func deliveredAt(id string, injectedAt sim.VTimeInCycle) *messaging.Packet {
	return messaging.PacketBuilder{}.
		WithID(id).
		WithInjectedAt(injectedAt).
		Build()
}

var _ = Describe("Collector", func() {
	var (
		topo      *mesh.Topology
		collector *Collector
	)

	BeforeEach(func() {
		var err error
		topo, err = mesh.Build(2, 2, 1, 1, 1)
		Expect(err).NotTo(HaveOccurred())

		collector = NewCollector(3)
	})

	It("should record one snapshot per cycle", func() {
		topo.RouterAt(0).Power = 3
		topo.RouterAt(1).Temperature = 60
		topo.RouterAt(2).Health = mesh.Faulty
		topo.LinkAt(0).Health = mesh.Faulty

		s := collector.RecordCycle(10,
			[]*messaging.Packet{deliveredAt("a", 6), deliveredAt("b", 8)},
			topo,
			CycleCounters{Injected: 3, Dropped: 1, InFlight: 7, ThrottledRouters: 2})

		Expect(s).To(Equal(Snapshot{
			Cycle:            10,
			AvgLatency:       3,
			Throughput:       2,
			TotalPower:       6,
			Injected:         3,
			Dropped:          1,
			InFlight:         7,
			FaultyRouters:    1,
			FaultyLinks:      1,
			ThrottledRouters: 2,
			MaxTemperature:   60,
		}))
		Expect(collector.Len()).To(Equal(1))
	})

	It("should report zero latency when nothing is delivered", func() {
		s := collector.RecordCycle(1, nil, topo, CycleCounters{})

		Expect(s.AvgLatency).To(BeZero())
		Expect(s.Throughput).To(BeZero())
		Expect(s.TotalPower).To(Equal(4.0))
	})

	It("should hand out the series once", func() {
		collector.RecordCycle(1, nil, topo, CycleCounters{})

		series := collector.Finish()

		Expect(series.Len()).To(Equal(1))
		Expect(func() { collector.Finish() }).To(Panic())
		Expect(func() {
			collector.RecordCycle(2, nil, topo, CycleCounters{})
		}).To(Panic())
	})
})

var _ = Describe("Series", func() {
	var series *Series

	BeforeEach(func() {
		topo, err := mesh.Build(2, 1, 1, 1, 1)
		Expect(err).NotTo(HaveOccurred())

		c := NewCollector(3)

		c.RecordCycle(1, nil, topo, CycleCounters{Injected: 2})

		topo.RouterAt(0).Power = 2
		c.RecordCycle(2,
			[]*messaging.Packet{deliveredAt("a", 0), deliveredAt("b", 1)},
			topo, CycleCounters{Injected: 1, Dropped: 1, ThrottledRouters: 1})

		topo.RouterAt(1).Temperature = 90
		c.RecordCycle(3,
			[]*messaging.Packet{deliveredAt("c", 0)},
			topo, CycleCounters{})

		series = c.Finish()
	})

	It("should keep the snapshots in cycle order", func() {
		cycles := []uint64{}
		for i, s := range series.All() {
			Expect(s).To(Equal(series.At(i)))
			cycles = append(cycles, s.Cycle)
		}

		Expect(cycles).To(Equal([]uint64{1, 2, 3}))
		Expect(series.Snapshots()).To(HaveLen(3))
	})

	It("should expose the three series", func() {
		Expect(series.Latencies()).To(Equal([]float64{0, 1.5, 3}))
		Expect(series.Throughputs()).To(Equal([]float64{0, 2, 1}))
		Expect(series.Powers()).To(Equal([]float64{2, 3, 3}))
	})

	It("should weight the average latency by packet", func() {
		s := series.Summary()

		Expect(s.Cycles).To(Equal(3))
		Expect(s.AvgLatency).To(BeNumerically("~", 2, 1e-9))
		Expect(s.AvgThroughput).To(BeNumerically("~", 1, 1e-9))
		Expect(s.AvgPower).To(BeNumerically("~", 8.0/3, 1e-9))
		Expect(s.FinalPower).To(Equal(3.0))
		Expect(s.Injected).To(Equal(3))
		Expect(s.Delivered).To(Equal(3))
		Expect(s.Dropped).To(Equal(1))
		Expect(s.DeliveryRatio).To(Equal(1.0))
		Expect(s.PeakTemperature).To(Equal(90.0))
		Expect(s.PeakThrottledRouters).To(Equal(1))
	})

	It("should summarize an empty series", func() {
		s := NewCollector(0).Finish().Summary()

		Expect(s).To(Equal(Summary{}))
	})
})
