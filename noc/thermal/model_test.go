package thermal

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/faultnoc/noc/mesh"
)

var _ = Describe("Model", func() {
	var (
		model *Model
		topo  *mesh.Topology
	)

	BeforeEach(func() {
		model = NewModel(DefaultParams())

		var err error
		topo, err = mesh.Build(2, 2, 1, 1, 1)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should panic on invalid parameters", func() {
		p := DefaultParams()
		p.Relaxation = 0

		Expect(func() { NewModel(p) }).To(Panic())
	})

	DescribeTable("invalid parameters",
		func(mutate func(p *Params)) {
			p := DefaultParams()
			mutate(&p)

			Expect(p.Validate()).To(MatchError(ErrInvalidParams))
		},
		Entry("critical below ambient", func(p *Params) { p.Critical = 20 }),
		Entry("max below critical", func(p *Params) { p.Max = 80 }),
		Entry("negative load coefficient", func(p *Params) { p.LoadCoefficient = -1 }),
		Entry("negative heating", func(p *Params) { p.HeatingCoefficient = -1 }),
		Entry("relaxation above 1", func(p *Params) { p.Relaxation = 1.5 }),
		Entry("zero max step", func(p *Params) { p.MaxStep = 0 }),
		Entry("full coupling", func(p *Params) { p.NeighborCoupling = 1 }),
		Entry("NaN ambient", func(p *Params) { p.Ambient = math.NaN() }),
		Entry("infinite max", func(p *Params) { p.Max = math.Inf(1) }),
		Entry("active threshold above 1", func(p *Params) { p.ActiveThreshold = 2 }),
		Entry("negative active power", func(p *Params) { p.ActivePower = -1 }),
		Entry("negative fan cooling", func(p *Params) { p.FanCooling = -1 }),
		Entry("fan off above fan on", func(p *Params) { p.FanOffTemperature = 75 }),
	)

	It("should draw idle power plus load, and none when faulty", func() {
		r := topo.RouterAt(0)

		Expect(model.Power(r, 0)).To(Equal(1.0))
		Expect(model.Power(r, 4)).To(Equal(3.0))

		r.Health = mesh.Faulty
		Expect(model.Power(r, 4)).To(BeZero())
	})

	Context("with power states", func() {
		var r *mesh.Router

		BeforeEach(func() {
			p := DefaultParams()
			p.ActiveThreshold = 0.5
			p.ActivePower = 4
			model = NewModel(p)

			topo, err := mesh.MakeBuilder().
				WithDimensions(2, 1, 1).
				WithBufferSize(4).
				Build()
			Expect(err).NotTo(HaveOccurred())
			r = topo.RouterAt(0)
		})

		It("should stay idle below the threshold", func() {
			r.Queue.Push(1)

			Expect(model.PowerState(r)).To(Equal(Idle))
			Expect(model.Power(r, 1)).To(Equal(1.5))
		})

		It("should turn active at the threshold", func() {
			r.Queue.Push(1)
			r.Queue.Push(2)

			Expect(model.PowerState(r)).To(Equal(Active))
			Expect(model.PowerState(r).String()).To(Equal("active"))
			Expect(model.Power(r, 2)).To(Equal(6.0))

			r.Health = mesh.Faulty
			Expect(model.Power(r, 2)).To(BeZero())
		})

		It("should never be active without a threshold", func() {
			model = NewModel(DefaultParams())
			r.Queue.Push(1)
			r.Queue.Push(2)
			r.Queue.Push(3)

			Expect(model.PowerState(r)).To(Equal(Idle))
		})
	})

	Context("with fans", func() {
		var r *mesh.Router

		BeforeEach(func() {
			p := DefaultParams()
			p.FanCooling = 2
			p.Relaxation = 1
			p.MaxStep = 100
			p.Critical = 200
			p.Max = 300
			model = NewModel(p)
			r = topo.RouterAt(0)
		})

		It("should speed up above the on temperature", func() {
			r.Load = 10 // target 75

			model.Update(r, 0)
			Expect(r.Temperature).To(Equal(75.0))
			Expect(r.FanSpeed).To(Equal(1))

			model.Update(r, 0)
			Expect(r.Temperature).To(Equal(73.0))
			Expect(r.FanSpeed).To(Equal(2))

			model.Update(r, 0)
			Expect(r.Temperature).To(Equal(71.0))
			Expect(r.FanSpeed).To(Equal(3))

			model.Update(r, 0)
			Expect(r.Temperature).To(Equal(69.0))
			Expect(r.FanSpeed).To(Equal(3))
		})

		It("should hold its speed between the thresholds", func() {
			r.FanSpeed = 2
			r.Load = 13 // target 90, cooled to 86

			model.Update(r, 0)
			Expect(r.FanSpeed).To(Equal(3))

			r.Load = 7 // target 60, cooled to 54
			model.Update(r, 0)
			Expect(r.Temperature).To(Equal(54.0))
			Expect(r.FanSpeed).To(Equal(2))

			r.Load = 8 // target 65, cooled to 61
			model.Update(r, 0)
			Expect(r.Temperature).To(Equal(61.0))
			Expect(r.FanSpeed).To(Equal(2))
		})

		It("should not cool below ambient", func() {
			r.FanSpeed = 5

			model.Update(r, 0)

			Expect(r.Temperature).To(Equal(25.0))
			Expect(r.FanSpeed).To(Equal(4))
		})

		It("should not exceed the max fan speed", func() {
			r.Load = 100

			for i := 0; i < 10; i++ {
				model.Update(r, 0)
			}

			Expect(r.FanSpeed).To(Equal(5))
		})

		It("should count running fans", func() {
			r.Load = 10

			s := model.UpdateAll(topo)

			Expect(s.FansRunning).To(Equal(1))
		})
	})

	It("should leave the fans off without fan cooling", func() {
		r := topo.RouterAt(0)
		r.Temperature = 100

		model.Update(r, 0)

		Expect(r.FanSpeed).To(BeZero())
	})

	It("should cap the temperature change per cycle", func() {
		Expect(model.Step(25, 225)).To(Equal(30.0))
		Expect(model.Step(100, 0)).To(Equal(95.0))
		Expect(model.Step(25, 35)).To(BeNumerically("~", 26, 1e-9))
	})

	It("should never exceed the maximum temperature", func() {
		Expect(model.Step(124, 1000)).To(Equal(125.0))
	})

	It("should converge to the target without overshooting", func() {
		r := topo.RouterAt(0)
		r.Load = 3
		target := model.Target(3, 0)

		previous := r.Temperature
		for i := 0; i < 500; i++ {
			model.Update(r, 0)

			Expect(r.Temperature).To(BeNumerically(">=", previous))
			Expect(r.Temperature).To(BeNumerically("<=", target))
			previous = r.Temperature
		}

		Expect(r.Temperature).To(BeNumerically("~", target, 1e-6))
		Expect(r.Power).To(Equal(2.5))
	})

	It("should cool down toward ambient without undershooting", func() {
		r := topo.RouterAt(0)
		r.Temperature = 100

		for i := 0; i < 500; i++ {
			model.Update(r, 0)
			Expect(r.Temperature).To(BeNumerically(">=", 25))
		}

		Expect(r.Temperature).To(BeNumerically("~", 25, 1e-6))
	})

	It("should throttle at the critical temperature", func() {
		r := topo.RouterAt(0)

		r.Temperature = 84.9
		Expect(model.IsThrottled(r)).To(BeFalse())

		r.Temperature = 85
		Expect(model.IsThrottled(r)).To(BeTrue())
	})

	It("should report newly throttled routers once", func() {
		hot := topo.RouterAt(1)
		hot.Temperature = 84
		hot.Load = 100

		s := model.UpdateAll(topo)

		Expect(s.Throttled).To(Equal(1))
		Expect(s.NewlyThrottled).To(Equal([]mesh.Coordinate{hot.Coord}))
		Expect(s.MaxTemperature).To(Equal(hot.Temperature))
		Expect(s.TotalPower).To(Equal(3.0 + 51.0))

		s = model.UpdateAll(topo)
		Expect(s.Throttled).To(Equal(1))
		Expect(s.NewlyThrottled).To(BeEmpty())
	})

	It("should blend in the neighbors with coupling", func() {
		p := DefaultParams()
		p.NeighborCoupling = 0.5
		p.Relaxation = 1
		p.MaxStep = 100
		model = NewModel(p)

		topo.RouterAt(1).Temperature = 65
		topo.RouterAt(2).Temperature = 45

		model.UpdateAll(topo)

		// Router 0 neighbors routers 1 and 2, whose mean is 55.
		Expect(topo.RouterAt(0).Temperature).To(BeNumerically("~", 40, 1e-9))
	})
})
