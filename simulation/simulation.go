// Package simulation runs a fault- and thermal-aware 3D mesh NoC, cycle by
// cycle, and produces the metrics series of the run.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sarchlab/faultnoc/datarecording"
	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/sim"
)

// ErrAlreadyRun is returned when Run is called on a simulation that has
// already run.
var ErrAlreadyRun = errors.New("simulation already run")

// A Simulation runs the cycle loop over a Context. Every cycle executes, in
// order, fault injection, packet admission, packet advancement, the power and
// thermal update, and metrics recording.
type Simulation struct {
	sim.HookableBase

	ctx    *Context
	engine *sim.CycleEngine
	logger zerolog.Logger

	recorder  datarecording.DataRecorder
	tableName string

	hasRun bool
}

// Name returns the name of the simulation, used as a hook domain.
func (s *Simulation) Name() string {
	return "Simulation"
}

// Context returns the state owned by the simulation.
func (s *Simulation) Context() *Context {
	return s.ctx
}

// Engine returns the cycle engine that drives the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Run executes the configured number of cycles and hands out the series.
// Run can only be called once.
func (s *Simulation) Run(ctx context.Context) (*metrics.Series, error) {
	if s.hasRun {
		return nil, ErrAlreadyRun
	}

	s.hasRun = true

	cfg := s.ctx.Config
	rows, cols, layers := s.ctx.Topology.Dimensions()

	s.logger.Info().
		Int("rows", rows).
		Int("cols", cols).
		Int("layers", layers).
		Int("routers", s.ctx.Topology.NumRouters()).
		Int("links", s.ctx.Topology.NumLinks()).
		Int("cycles", cfg.NumCycles).
		Float64("fault_probability", cfg.FaultProbability).
		Str("fault_policy", cfg.FaultPolicy).
		Float64("injection_rate", cfg.PacketInjectionRate).
		Uint64("seed", cfg.Seed).
		Msg("simulation started")

	start := time.Now()

	err := s.engine.Run(ctx, uint64(cfg.NumCycles))
	if err != nil {
		return nil, fmt.Errorf("running simulation: %w", err)
	}

	s.engine.Finished()

	if s.recorder != nil {
		s.recorder.Flush()
	}

	series := s.ctx.Metrics.Finish()
	summary := series.Summary()

	s.logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("injected", s.ctx.Totals.Injected).
		Int("delivered", s.ctx.Totals.Delivered).
		Int("dropped", s.ctx.Totals.Dropped).
		Int("in_flight", s.ctx.InFlight).
		Float64("avg_latency", summary.AvgLatency).
		Float64("avg_throughput", summary.AvgThroughput).
		Float64("final_power", summary.FinalPower).
		Msg("simulation finished")

	return series, nil
}
