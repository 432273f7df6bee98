package mesh

import (
	"errors"
	"fmt"
)

// ErrInvalidTopologyConfig is returned when a topology cannot be built from
// the given dimensions or latencies.
var ErrInvalidTopologyConfig = errors.New("invalid topology config")

// Builder can help building Topologies.
type Builder struct {
	rows, cols, layers int
	linkLatency        int
	routerLatency      int
	bufferSize         int
	linkBandwidth      int
	idlePower          float64
	ambient            float64
}

// MakeBuilder creates a new Builder with default configurations.
func MakeBuilder() Builder {
	return Builder{
		rows:          4,
		cols:          4,
		layers:        2,
		linkLatency:   1,
		routerLatency: 1,
		bufferSize:    64,
		idlePower:     1.0,
		ambient:       25.0,
	}
}

// WithDimensions sets the number of rows, columns and layers of the grid.
func (b Builder) WithDimensions(rows, cols, layers int) Builder {
	b.rows = rows
	b.cols = cols
	b.layers = layers

	return b
}

// WithLinkLatency sets the latency, in cycles, of every link.
func (b Builder) WithLinkLatency(cycles int) Builder {
	b.linkLatency = cycles
	return b
}

// WithRouterLatency sets the pipeline latency, in cycles, of every router.
func (b Builder) WithRouterLatency(cycles int) Builder {
	b.routerLatency = cycles
	return b
}

// WithBufferSize sets how many packets a router queue can hold.
func (b Builder) WithBufferSize(n int) Builder {
	b.bufferSize = n
	return b
}

// WithLinkBandwidth sets how many flits every link carries per cycle. Zero
// leaves the links unlimited.
func (b Builder) WithLinkBandwidth(flits int) Builder {
	b.linkBandwidth = flits
	return b
}

// WithIdlePower sets the power, in watts, a router draws with no load.
func (b Builder) WithIdlePower(watts float64) Builder {
	b.idlePower = watts
	return b
}

// WithAmbientTemperature sets the initial temperature of every router.
func (b Builder) WithAmbientTemperature(t float64) Builder {
	b.ambient = t
	return b
}

func (b Builder) validate() error {
	switch {
	case b.rows <= 0 || b.cols <= 0 || b.layers <= 0:
		return fmt.Errorf("%w: dimensions %dx%dx%d must be positive",
			ErrInvalidTopologyConfig, b.rows, b.cols, b.layers)
	case b.linkLatency < 1:
		return fmt.Errorf("%w: link latency %d must be at least 1",
			ErrInvalidTopologyConfig, b.linkLatency)
	case b.routerLatency < 1:
		return fmt.Errorf("%w: router latency %d must be at least 1",
			ErrInvalidTopologyConfig, b.routerLatency)
	case b.bufferSize < 1:
		return fmt.Errorf("%w: buffer size %d must be at least 1",
			ErrInvalidTopologyConfig, b.bufferSize)
	case b.linkBandwidth < 0:
		return fmt.Errorf("%w: link bandwidth %d must not be negative",
			ErrInvalidTopologyConfig, b.linkBandwidth)
	case b.idlePower < 0:
		return fmt.Errorf("%w: idle power %g must not be negative",
			ErrInvalidTopologyConfig, b.idlePower)
	}

	return nil
}

// Build creates every router and every link of the grid. All the elements
// start healthy, at idle power and ambient temperature.
func (b Builder) Build() (*Topology, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	t := &Topology{
		rows:          b.rows,
		cols:          b.cols,
		layers:        b.layers,
		linkLatency:   b.linkLatency,
		routerLatency: b.routerLatency,
		linkIndex:     make(map[LinkKey]int),
	}

	t.routers = make([]Router, 0, b.rows*b.cols*b.layers)
	for i := 0; i < b.rows*b.cols*b.layers; i++ {
		c := t.CoordinateOf(i)
		t.routers = append(t.routers,
			newRouter(c, b.bufferSize, b.idlePower, b.ambient))
	}

	// Only the positive directions are walked so that each link is created
	// once.
	positive := []Direction{RowPlus, ColPlus, LayerPlus}
	for i := range t.routers {
		c := t.routers[i].Coord
		for _, d := range positive {
			n := c.Add(d)
			if !t.Contains(n) {
				continue
			}

			key := MakeLinkKey(i, t.Index(n))
			t.linkIndex[key] = len(t.links)
			t.links = append(t.links, Link{
				Key:     key,
				Ends:    [2]Coordinate{c, n},
				Latency:   b.linkLatency,
				Health:    Healthy,
				Bandwidth: b.linkBandwidth,
			})
		}
	}

	return t, nil
}

// Build creates a topology with the given dimensions and latencies, and the
// default buffer size, idle power and ambient temperature.
func Build(rows, cols, layers, linkLatency, routerLatency int) (*Topology, error) {
	return MakeBuilder().
		WithDimensions(rows, cols, layers).
		WithLinkLatency(linkLatency).
		WithRouterLatency(routerLatency).
		Build()
}
