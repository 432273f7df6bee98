package mesh

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Coordinate", func() {
	It("should compute Manhattan distances", func() {
		Expect(Manhattan(Coordinate{}, Coordinate{Row: 3, Col: 2, Layer: 1})).
			To(Equal(6))
		Expect(Manhattan(Coordinate{Row: 2, Col: 1}, Coordinate{Col: 3})).
			To(Equal(4))
	})

	It("should tell adjacency", func() {
		Expect(Adjacent(Coordinate{}, Coordinate{Layer: 1})).To(BeTrue())
		Expect(Adjacent(Coordinate{}, Coordinate{})).To(BeFalse())
		Expect(Adjacent(Coordinate{}, Coordinate{Row: 1, Col: 1})).To(BeFalse())
	})

	It("should find the direction between neighbors", func() {
		d, ok := DirectionBetween(Coordinate{Row: 1}, Coordinate{})
		Expect(ok).To(BeTrue())
		Expect(d).To(Equal(RowMinus))
		Expect(d.String()).To(Equal("row-"))

		_, ok = DirectionBetween(Coordinate{}, Coordinate{Row: 2})
		Expect(ok).To(BeFalse())
	})

	It("should format as a tuple", func() {
		Expect(Coordinate{Row: 1, Col: 2, Layer: 3}.String()).To(Equal("(1,2,3)"))
	})
})

var _ = Describe("DimensionOrderTable", func() {
	table := DimensionOrderTable{}

	It("should resolve rows, then columns, then layers", func() {
		dst := Coordinate{Row: 2, Col: 0, Layer: 1}
		path := []Coordinate{{Row: 0, Col: 3, Layer: 0}}

		for {
			next, ok := table.NextHop(path[len(path)-1], dst)
			if !ok {
				break
			}

			path = append(path, next)
		}

		Expect(path).To(Equal([]Coordinate{
			{Row: 0, Col: 3, Layer: 0},
			{Row: 1, Col: 3, Layer: 0},
			{Row: 2, Col: 3, Layer: 0},
			{Row: 2, Col: 2, Layer: 0},
			{Row: 2, Col: 1, Layer: 0},
			{Row: 2, Col: 0, Layer: 0},
			{Row: 2, Col: 0, Layer: 1},
		}))
	})

	It("should report arrival", func() {
		c := Coordinate{Row: 1, Col: 1, Layer: 1}

		next, ok := table.NextHop(c, c)
		Expect(ok).To(BeFalse())
		Expect(next).To(Equal(c))
	})
})
