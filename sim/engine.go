package sim

import "context"

// VTimeInCycle defines the time in the simulated space in the unit of cycles.
type VTimeInCycle uint64

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInCycle
}

// A Ticker is an object that updates states with ticks. Tick returns an error
// only when the simulation cannot continue.
type Ticker interface {
	Tick(now VTimeInCycle) error
}

// A Phase is a named Ticker. The phases registered to an engine are ticked in
// registration order, once per cycle.
type Phase interface {
	Named
	Ticker
}

// A SimulationEndHandler is a handler that is called after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInCycle)
}

// An Engine is a unit that keeps the cycle-stepped simulation run.
type Engine interface {
	Hookable
	TimeTeller

	// RegisterPhase appends a phase to the per-cycle schedule.
	RegisterPhase(p Phase)

	// Run executes numCycles cycles, or stops early when ctx is cancelled or a
	// phase fails.
	Run(ctx context.Context, numCycles uint64) error

	// RegisterSimulationEndHandler registers a handler that perform some
	// actions after the simulation is finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandler
	Finished()
}
