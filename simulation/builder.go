package simulation

import (
	"github.com/rs/zerolog"

	"github.com/sarchlab/faultnoc/config"
	"github.com/sarchlab/faultnoc/datarecording"
	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	cfg         config.Config
	logger      zerolog.Logger
	idGenerator sim.IDGenerator
	recorder    datarecording.DataRecorder
	tableName   string
	hooks       []sim.Hook
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg:       config.Default(),
		logger:    zerolog.Nop(),
		tableName: "cycle_metrics",
	}
}

// WithConfig sets the configuration of the run.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the logger. By default nothing is logged.
func (b Builder) WithLogger(l zerolog.Logger) Builder {
	b.logger = l
	return b
}

// WithIDGenerator sets the generator of packet IDs. By default IDs are
// sequential.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

// WithDataRecorder makes the simulation record every snapshot into a table
// of the recorder.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithTableName sets the name of the table that snapshots are recorded into.
func (b Builder) WithTableName(name string) Builder {
	b.tableName = name
	return b
}

// WithHook registers a hook on the simulation.
func (b Builder) WithHook(h sim.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build validates the configuration and builds the simulation. The error
// matches config.ErrInvalidConfig when the configuration is invalid.
func (b Builder) Build() (*Simulation, error) {
	ids := b.idGenerator
	if ids == nil {
		ids = sim.NewSequentialIDGenerator()
	}

	ctx, err := NewContext(b.cfg, ids)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		ctx:       ctx,
		engine:    sim.NewCycleEngine(),
		logger:    b.logger,
		recorder:  b.recorder,
		tableName: b.tableName,
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	if s.recorder != nil {
		s.recorder.CreateTable(s.tableName, metrics.Snapshot{})
	}

	s.registerPhases()

	return s, nil
}
