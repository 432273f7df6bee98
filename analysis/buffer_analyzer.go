// Package analysis derives performance figures from the components of a
// running simulation.
package analysis

import (
	"github.com/sarchlab/faultnoc/datarecording"
	"github.com/sarchlab/faultnoc/sim"
)

// BufferLevel is the occupancy of a buffer over a period of cycles.
type BufferLevel struct {
	Start    uint64
	End      uint64
	Where    string
	AvgLevel float64
	MaxLevel int
	Capacity int
}

// BufferAnalyzer records the time-weighted occupancy of a buffer. It is a hook
// on the buffer and a simulation end handler of the engine.
type BufferAnalyzer struct {
	sim.TimeTeller

	buf       sim.Buffer
	recorder  datarecording.DataRecorder
	tableName string
	period    sim.VTimeInCycle

	periodStart     sim.VTimeInCycle
	lastTime        sim.VTimeInCycle
	lastLevel       int
	maxLevel        int
	levelToDuration map[int]sim.VTimeInCycle
}

// Func records a change of the buffer level.
func (b *BufferAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBufPush && ctx.Pos != sim.HookPosBufPop {
		return
	}

	now := b.CurrentTime()
	b.closePeriods(now)

	b.levelToDuration[b.lastLevel] += now - b.lastTime
	b.lastLevel = b.buf.Size()
	b.lastTime = now
	b.maxLevel = max(b.maxLevel, b.lastLevel)
}

// Handle summarizes the periods that are still open when the simulation ends.
func (b *BufferAnalyzer) Handle(now sim.VTimeInCycle) {
	b.closePeriods(now)

	b.levelToDuration[b.lastLevel] += now - b.lastTime
	b.lastTime = now

	if now > b.periodStart {
		b.summarizePeriod(b.periodStart, now)
	}
}

func (b *BufferAnalyzer) closePeriods(now sim.VTimeInCycle) {
	if b.period == 0 {
		return
	}

	for now >= b.periodStart+b.period {
		end := b.periodStart + b.period

		b.levelToDuration[b.lastLevel] += end - b.lastTime
		b.summarizePeriod(b.periodStart, end)

		b.levelToDuration = make(map[int]sim.VTimeInCycle)
		b.maxLevel = b.lastLevel
		b.periodStart = end
		b.lastTime = end
	}
}

func (b *BufferAnalyzer) summarizePeriod(start, end sim.VTimeInCycle) {
	sumLevel := 0.0
	sumDuration := 0.0

	for level, duration := range b.levelToDuration {
		sumLevel += float64(level) * float64(duration)
		sumDuration += float64(duration)
	}

	if sumDuration == 0 || sumLevel == 0 {
		return
	}

	b.recorder.InsertData(b.tableName, BufferLevel{
		Start:    uint64(start),
		End:      uint64(end),
		Where:    b.buf.Name(),
		AvgLevel: sumLevel / sumDuration,
		MaxLevel: b.maxLevel,
		Capacity: b.buf.Capacity(),
	})
}

// BufferAnalyzerBuilder can build a BufferAnalyzer.
type BufferAnalyzerBuilder struct {
	timeTeller sim.TimeTeller
	recorder   datarecording.DataRecorder
	tableName  string
	period     sim.VTimeInCycle
	buffer     sim.Buffer
}

// MakeBufferAnalyzerBuilder creates a BufferAnalyzerBuilder. By default the
// whole run is a single period.
func MakeBufferAnalyzerBuilder() BufferAnalyzerBuilder {
	return BufferAnalyzerBuilder{
		tableName: "buffer_level",
	}
}

// WithTimeTeller sets the TimeTeller to use.
func (b BufferAnalyzerBuilder) WithTimeTeller(
	timeTeller sim.TimeTeller,
) BufferAnalyzerBuilder {
	b.timeTeller = timeTeller
	return b
}

// WithRecorder sets the recorder that the periods are written to. The table
// must already exist.
func (b BufferAnalyzerBuilder) WithRecorder(
	recorder datarecording.DataRecorder,
) BufferAnalyzerBuilder {
	b.recorder = recorder
	return b
}

// WithTableName sets the table that the periods are written to.
func (b BufferAnalyzerBuilder) WithTableName(name string) BufferAnalyzerBuilder {
	b.tableName = name
	return b
}

// WithPeriod sets the number of cycles summarized by each record.
func (b BufferAnalyzerBuilder) WithPeriod(
	cycles sim.VTimeInCycle,
) BufferAnalyzerBuilder {
	b.period = cycles
	return b
}

// WithBuffer sets the buffer to analyze.
func (b BufferAnalyzerBuilder) WithBuffer(buffer sim.Buffer) BufferAnalyzerBuilder {
	b.buffer = buffer
	return b
}

// Build creates a BufferAnalyzer and hooks it to the buffer.
func (b BufferAnalyzerBuilder) Build() *BufferAnalyzer {
	if b.recorder == nil {
		panic("recorder is not set")
	}

	if b.timeTeller == nil {
		panic("timeTeller is not set")
	}

	if b.buffer == nil {
		panic("buffer is not set")
	}

	analyzer := &BufferAnalyzer{
		TimeTeller:      b.timeTeller,
		buf:             b.buffer,
		recorder:        b.recorder,
		tableName:       b.tableName,
		period:          b.period,
		lastLevel:       b.buffer.Size(),
		maxLevel:        b.buffer.Size(),
		levelToDuration: make(map[int]sim.VTimeInCycle),
	}

	b.buffer.AcceptHook(analyzer)

	return analyzer
}

// AnalyzeBuffers creates the table and one analyzer for every buffer. The
// analyzers write their last periods when the engine finishes.
func AnalyzeBuffers(
	engine sim.Engine,
	buffers []sim.Buffer,
	recorder datarecording.DataRecorder,
	tableName string,
	period sim.VTimeInCycle,
) []*BufferAnalyzer {
	recorder.CreateTable(tableName, BufferLevel{})

	builder := MakeBufferAnalyzerBuilder().
		WithTimeTeller(engine).
		WithRecorder(recorder).
		WithTableName(tableName).
		WithPeriod(period)

	analyzers := make([]*BufferAnalyzer, 0, len(buffers))
	for _, buf := range buffers {
		a := builder.WithBuffer(buf).Build()
		engine.RegisterSimulationEndHandler(a)
		analyzers = append(analyzers, a)
	}

	return analyzers
}
