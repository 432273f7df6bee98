// Package monitoring reports the progress and the resource usage of a running
// simulation.
package monitoring

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sarchlab/faultnoc/sim"
)

// Monitor tracks the progress bars of the running simulations.
type Monitor struct {
	ids sim.IDGenerator

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		ids: sim.NewSequentialIDGenerator(),
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.ids.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the monitor.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// ProgressBars returns the bars that are not completed.
func (m *Monitor) ProgressBars() []*ProgressBar {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)

	return bars
}

// TrackCycles creates a progress bar that advances after every cycle of the
// engine.
func (m *Monitor) TrackCycles(
	name string,
	engine sim.Hookable,
	numCycles uint64,
) *ProgressBar {
	bar := m.CreateProgressBar(name, numCycles)

	engine.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos == sim.HookPosAfterCycle {
			bar.IncrementFinished(1)
		}
	}))

	return bar
}

// Print writes the bars to w every interval until ctx is done.
func (m *Monitor) Print(ctx context.Context, w io.Writer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.printBars(w)
			fmt.Fprintln(w)

			return
		case <-ticker.C:
			m.printBars(w)
		}
	}
}

func (m *Monitor) printBars(w io.Writer) {
	for _, b := range m.ProgressBars() {
		fmt.Fprintf(w, "\r%s", b)
	}
}
