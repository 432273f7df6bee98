package fault

import (
	"math/rand/v2"

	"go.uber.org/mock/gomock"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/faultnoc/noc/mesh"
)

var _ = ginkgo.Describe("Injector", func() {
	var (
		mockCtrl *gomock.Controller
		rng      *MockRandomSource
		topo     *mesh.Topology
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		rng = NewMockRandomSource(mockCtrl)

		var err error
		topo, err = mesh.Build(2, 1, 1, 1, 1)
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	expectDraws := func(draws ...float64) {
		calls := make([]any, 0, len(draws))
		for _, d := range draws {
			calls = append(calls, rng.EXPECT().Float64().Return(d))
		}

		gomock.InOrder(calls...)
	}

	ginkgo.It("should draw for routers in index order, then links", func() {
		injector := NewInjector(Transient, 0, rng)
		expectDraws(0.1, 0.9, 0.2)

		report := injector.InjectFaults(topo, 0.5)

		Expect(topo.RouterAt(0).Health).To(Equal(mesh.Faulty))
		Expect(topo.RouterAt(1).Health).To(Equal(mesh.Healthy))
		Expect(topo.LinkAt(0).Health).To(Equal(mesh.Faulty))
		Expect(report).To(Equal(Report{
			NewlyFaulty:   2,
			FaultyRouters: 1,
			FaultyLinks:   1,
		}))
	})

	ginkgo.It("should heal transient faults that are not drawn again", func() {
		injector := NewInjector(Transient, 0, rng)
		topo.RouterAt(0).Health = mesh.Faulty
		expectDraws(0.7, 0.7, 0.7)

		report := injector.InjectFaults(topo, 0.5)

		Expect(topo.RouterAt(0).Health).To(Equal(mesh.Healthy))
		Expect(report.Recovered).To(Equal(1))
		Expect(report.FaultyRouters).To(BeZero())
	})

	ginkgo.It("should keep sticky faults until a recovery draw", func() {
		injector := NewInjector(Sticky, 0.2, rng)
		topo.RouterAt(0).Health = mesh.Faulty
		topo.RouterAt(1).Health = mesh.Faulty
		expectDraws(0.5, 0.1, 0.9)

		report := injector.InjectFaults(topo, 0.3)

		Expect(topo.RouterAt(0).Health).To(Equal(mesh.Faulty))
		Expect(topo.RouterAt(1).Health).To(Equal(mesh.Healthy))
		Expect(topo.LinkAt(0).Health).To(Equal(mesh.Healthy))
		Expect(report).To(Equal(Report{Recovered: 1, FaultyRouters: 1}))
	})

	ginkgo.It("should fail every element when p is 1", func() {
		topo, err := mesh.Build(4, 4, 2, 1, 1)
		Expect(err).NotTo(HaveOccurred())

		injector := NewInjector(Transient, 0, rand.New(rand.NewPCG(1, 2)))
		report := injector.InjectFaults(topo, 1)

		Expect(report.FaultyRouters).To(Equal(topo.NumRouters()))
		Expect(report.FaultyLinks).To(Equal(topo.NumLinks()))
	})

	ginkgo.It("should never fail an element when p is 0", func() {
		topo, err := mesh.Build(4, 4, 2, 1, 1)
		Expect(err).NotTo(HaveOccurred())

		injector := NewInjector(Sticky, 1, rand.New(rand.NewPCG(1, 2)))
		for i := 0; i < 10; i++ {
			report := injector.InjectFaults(topo, 0)
			Expect(report.FaultyRouters + report.FaultyLinks).To(BeZero())
		}
	})
})

var _ = ginkgo.Describe("ParsePolicy", func() {
	ginkgo.DescribeTable("names",
		func(name string, want Policy) {
			p, err := ParsePolicy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(want))
		},
		ginkgo.Entry("empty", "", Transient),
		ginkgo.Entry("transient", "transient", Transient),
		ginkgo.Entry("sticky", " Sticky ", Sticky),
	)

	ginkgo.It("should reject unknown policies", func() {
		_, err := ParsePolicy("forever")
		Expect(err).To(HaveOccurred())
	})
})
