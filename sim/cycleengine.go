package sim

import (
	"context"
	"fmt"
	"sync"
)

// HookPosBeforePhase triggers before a phase ticks. The item is the phase.
var HookPosBeforePhase = &HookPos{Name: "BeforePhase"}

// HookPosAfterPhase triggers after a phase ticks. The item is the phase.
var HookPosAfterPhase = &HookPos{Name: "AfterPhase"}

// A CycleEngine is an Engine that ticks every registered phase once per cycle,
// always in the same order. Cycles are numbered from 1.
type CycleEngine struct {
	HookableBase

	timeLock sync.RWMutex
	now      VTimeInCycle
	phases   []Phase

	singleRunLock sync.Mutex

	simulationEndHandlers []SimulationEndHandler
}

// NewCycleEngine creates a CycleEngine
func NewCycleEngine() *CycleEngine {
	return &CycleEngine{}
}

// RegisterPhase appends a phase to the cycle schedule.
func (e *CycleEngine) RegisterPhase(p Phase) {
	NameMustBeValid(p.Name())

	for _, existing := range e.phases {
		if existing.Name() == p.Name() {
			panic(fmt.Sprintf("phase %s already registered", p.Name()))
		}
	}

	e.phases = append(e.phases, p)
}

// Phases returns the registered phases in execution order.
func (e *CycleEngine) Phases() []Phase {
	return e.phases
}

func (e *CycleEngine) readNow() VTimeInCycle {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()

	return t
}

func (e *CycleEngine) writeNow(t VTimeInCycle) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Run executes numCycles cycles. Cancellation is only observed between
// cycles so that a cycle is never left half applied.
func (e *CycleEngine) Run(ctx context.Context, numCycles uint64) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	start := e.readNow()
	for i := uint64(1); i <= numCycles; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := start + VTimeInCycle(i)
		e.writeNow(now)

		if err := e.runCycle(now); err != nil {
			return err
		}
	}

	return nil
}

func (e *CycleEngine) runCycle(now VTimeInCycle) error {
	hookCtx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeCycle,
		Item:   now,
	}
	e.InvokeHook(hookCtx)

	for _, p := range e.phases {
		phaseCtx := HookCtx{Domain: e, Pos: HookPosBeforePhase, Item: p}
		e.InvokeHook(phaseCtx)

		if err := p.Tick(now); err != nil {
			return fmt.Errorf("cycle %d, phase %s: %w", now, p.Name(), err)
		}

		phaseCtx.Pos = HookPosAfterPhase
		e.InvokeHook(phaseCtx)
	}

	hookCtx.Pos = HookPosAfterCycle
	e.InvokeHook(hookCtx)

	return nil
}

// CurrentTime returns the cycle that is being executed, or the last executed
// cycle when the engine is idle.
func (e *CycleEngine) CurrentTime() VTimeInCycle {
	return e.readNow()
}

// RegisterSimulationEndHandler registers a handler to be called by Finished.
func (e *CycleEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished should be called after the simulation ends. This function
// calls all the registered SimulationEndHandler.
func (e *CycleEngine) Finished() {
	now := e.readNow()
	for _, h := range e.simulationEndHandlers {
		h.Handle(now)
	}
}
