// Package config loads and validates the parameters of a simulation run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/faultnoc/noc/fault"
	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/noc/thermal"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every recognized option of a run.
type Config struct {
	NumRows             int     `json:"num_rows" yaml:"num_rows"`
	NumCols             int     `json:"num_cols" yaml:"num_cols"`
	NumLayers           int     `json:"num_layers" yaml:"num_layers"`
	LinkLatency         int     `json:"link_latency" yaml:"link_latency"`
	RouterLatency       int     `json:"router_latency" yaml:"router_latency"`
	FaultProbability    float64 `json:"fault_probability" yaml:"fault_probability"`
	NumCycles           int     `json:"num_cycles" yaml:"num_cycles"`
	PacketInjectionRate float64 `json:"packet_injection_rate" yaml:"packet_injection_rate"`

	Seed                uint64  `json:"seed" yaml:"seed"`
	FaultPolicy         string  `json:"fault_policy" yaml:"fault_policy"`
	RecoveryProbability float64 `json:"recovery_probability" yaml:"recovery_probability"`
	BufferSize          int     `json:"buffer_size" yaml:"buffer_size"`
	MaxDetour           int     `json:"max_detour" yaml:"max_detour"`

	// HopSlack is the number of hops a packet may take beyond the Manhattan
	// distance between its source and destination.
	HopSlack int `json:"hop_slack" yaml:"hop_slack"`

	// PacketSize is the number of flits of every injected packet.
	PacketSize int `json:"packet_size" yaml:"packet_size"`

	// LinkBandwidth is the number of flits a link carries per cycle. Zero
	// leaves the links unlimited.
	LinkBandwidth int `json:"link_bandwidth" yaml:"link_bandwidth"`

	thermal.Params `yaml:",inline"`
}

// Default returns the default configuration: a 4x4x2 mesh without faults,
// one packet per cycle, for 50 cycles.
func Default() Config {
	return Config{
		NumRows:             4,
		NumCols:             4,
		NumLayers:           2,
		LinkLatency:         1,
		RouterLatency:       1,
		FaultProbability:    0,
		NumCycles:           50,
		PacketInjectionRate: 1,
		Seed:                1,
		FaultPolicy:         fault.Transient.String(),
		RecoveryProbability: 0.5,
		BufferSize:          64,
		MaxDetour:           2,
		HopSlack:            20,
		PacketSize:          1,
		LinkBandwidth:       0,
		Params:              thermal.DefaultParams(),
	}
}

// Policy returns the parsed fault policy.
func (c Config) Policy() (fault.Policy, error) {
	return fault.ParsePolicy(c.FaultPolicy)
}

// Validate checks every option. Problems with the grid dimensions, the
// latencies or the fault probability also match mesh.ErrInvalidTopologyConfig.
func (c Config) Validate() error {
	topologyErr := func(format string, args ...any) error {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig,
			mesh.ErrInvalidTopologyConfig, fmt.Sprintf(format, args...))
	}

	otherErr := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case c.NumRows < 1 || c.NumCols < 1 || c.NumLayers < 1:
		return topologyErr("grid %dx%dx%d must have positive dimensions",
			c.NumRows, c.NumCols, c.NumLayers)
	case c.LinkLatency < 1:
		return topologyErr("link_latency %d must be at least 1", c.LinkLatency)
	case c.RouterLatency < 1:
		return topologyErr("router_latency %d must be at least 1", c.RouterLatency)
	case math.IsNaN(c.FaultProbability) ||
		c.FaultProbability < 0 || c.FaultProbability > 1:
		return topologyErr("fault_probability %g must be in [0, 1]",
			c.FaultProbability)
	case c.NumCycles < 1:
		return otherErr("num_cycles %d must be at least 1", c.NumCycles)
	case math.IsNaN(c.PacketInjectionRate) || math.IsInf(c.PacketInjectionRate, 0) ||
		c.PacketInjectionRate < 0:
		return otherErr("packet_injection_rate %g must be finite and not negative",
			c.PacketInjectionRate)
	case math.IsNaN(c.RecoveryProbability) ||
		c.RecoveryProbability < 0 || c.RecoveryProbability > 1:
		return otherErr("recovery_probability %g must be in [0, 1]",
			c.RecoveryProbability)
	case c.BufferSize < 1:
		return otherErr("buffer_size %d must be at least 1", c.BufferSize)
	case c.MaxDetour < 0:
		return otherErr("max_detour %d must not be negative", c.MaxDetour)
	case c.HopSlack < 0:
		return otherErr("hop_slack %d must not be negative", c.HopSlack)
	case c.PacketSize < 1:
		return otherErr("packet_size %d must be at least 1", c.PacketSize)
	case c.LinkBandwidth < 0:
		return topologyErr("link_bandwidth %d must not be negative",
			c.LinkBandwidth)
	}

	if _, err := c.Policy(); err != nil {
		return otherErr("%v", err)
	}

	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Load reads a configuration file on top of the defaults. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON.
func Load(filename string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if isYAML(filename) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}

	if err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", filename, err)
	}

	return cfg, nil
}

// Save writes the configuration, choosing the format by file extension.
func (c Config) Save(filename string) error {
	var (
		bytes []byte
		err   error
	)

	if isYAML(filename) {
		bytes, err = yaml.Marshal(c)
	} else {
		bytes, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return os.WriteFile(filename, bytes, 0o644)
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
