package simulation

import (
	"math/rand/v2"

	"github.com/sarchlab/faultnoc/config"
	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/noc/fault"
	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/messaging"
	"github.com/sarchlab/faultnoc/noc/routing"
	"github.com/sarchlab/faultnoc/noc/thermal"
	"github.com/sarchlab/faultnoc/sim"
)

// Totals counts packet events over the whole run.
type Totals struct {
	Injected  int
	Delivered int
	Dropped   int

	RouteNotFound      int
	HopBudgetExhausted int
	SourceUnavailable  int

	BackupHops int
	Hops       int
}

// cycleState holds what happened in the cycle being executed. It is reset by
// the metrics phase.
type cycleState struct {
	delivered []*messaging.Packet
	injected  int
	dropped   int
	throttled int
}

// Context owns everything a run mutates: the topology, the seeded random
// source and the counters. It is passed explicitly to every phase.
type Context struct {
	Config   config.Config
	Topology *mesh.Topology
	Rand     *rand.Rand
	IDs      sim.IDGenerator

	Injector *fault.Injector
	Routing  *routing.Engine
	Thermal  *thermal.Model
	Metrics  *metrics.Collector

	// View is the health snapshot of the cycle being executed.
	View *routing.HealthView

	Totals   Totals
	InFlight int

	cycle cycleState
}

// NewContext builds the topology and every model from a validated
// configuration.
func NewContext(cfg config.Config, ids sim.IDGenerator) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	topo, err := mesh.MakeBuilder().
		WithDimensions(cfg.NumRows, cfg.NumCols, cfg.NumLayers).
		WithLinkLatency(cfg.LinkLatency).
		WithRouterLatency(cfg.RouterLatency).
		WithBufferSize(cfg.BufferSize).
		WithLinkBandwidth(cfg.LinkBandwidth).
		WithIdlePower(cfg.IdlePower).
		WithAmbientTemperature(cfg.Ambient).
		Build()
	if err != nil {
		return nil, err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	rng := newRand(cfg.Seed)

	return &Context{
		Config:   cfg,
		Topology: topo,
		Rand:     rng,
		IDs:      ids,
		Injector: fault.NewInjector(policy, cfg.RecoveryProbability, rng),
		Routing: routing.MakeBuilder().
			WithMaxDetour(cfg.MaxDetour).
			WithLinkLatency(cfg.LinkLatency).
			WithRouterLatency(cfg.RouterLatency).
			Build(),
		Thermal: thermal.NewModel(cfg.Params),
		Metrics: metrics.NewCollector(cfg.NumCycles),
	}, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
