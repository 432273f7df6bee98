// Package thermal models how the load of a router turns into power draw and
// heat, and when the heat throttles the router.
package thermal

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/faultnoc/noc/mesh"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid thermal parameters")

// Params holds the coefficients of the power and thermal model.
type Params struct {
	// Ambient is the temperature a router relaxes toward without load.
	Ambient float64 `json:"ambient_temperature" yaml:"ambient_temperature"`

	// Critical is the temperature at or above which a router is throttled.
	Critical float64 `json:"critical_temperature" yaml:"critical_temperature"`

	// Max is the highest representable temperature.
	Max float64 `json:"max_temperature" yaml:"max_temperature"`

	// IdlePower is the power, in watts, of a healthy router without load.
	IdlePower float64 `json:"idle_power" yaml:"idle_power"`

	// LoadCoefficient is the extra power, in watts, per packet of load.
	LoadCoefficient float64 `json:"load_coefficient" yaml:"load_coefficient"`

	// HeatingCoefficient is how far, in degrees, one packet of load raises
	// the equilibrium temperature above ambient.
	HeatingCoefficient float64 `json:"heating_coefficient" yaml:"heating_coefficient"`

	// Relaxation is the fraction of the distance to the target temperature
	// covered in one cycle. It must be in (0, 1].
	Relaxation float64 `json:"relaxation" yaml:"relaxation"`

	// MaxStep caps the temperature change per cycle.
	MaxStep float64 `json:"max_step" yaml:"max_step"`

	// NeighborCoupling blends the mean temperature of the neighbors into the
	// target temperature. It must be in [0, 1).
	NeighborCoupling float64 `json:"neighbor_coupling" yaml:"neighbor_coupling"`

	// ActiveThreshold is the queue occupancy, as a fraction of the capacity,
	// at or above which a router is in the active power state. Zero keeps
	// every router idle.
	ActiveThreshold float64 `json:"active_threshold" yaml:"active_threshold"`

	// ActivePower is the extra power, in watts, of an active router.
	ActivePower float64 `json:"active_power" yaml:"active_power"`

	// FanCooling is how far, in degrees, each fan level lowers the
	// equilibrium temperature. Zero disables the fans.
	FanCooling float64 `json:"fan_cooling" yaml:"fan_cooling"`

	// A fan speeds up by one level per cycle above FanOnTemperature and
	// slows down by one level per cycle below FanOffTemperature.
	FanOnTemperature  float64 `json:"fan_on_temperature" yaml:"fan_on_temperature"`
	FanOffTemperature float64 `json:"fan_off_temperature" yaml:"fan_off_temperature"`
	MaxFanSpeed       int     `json:"max_fan_speed" yaml:"max_fan_speed"`
}

// DefaultParams returns the default coefficients.
func DefaultParams() Params {
	return Params{
		Ambient:            25,
		Critical:           85,
		Max:                125,
		IdlePower:          1.0,
		LoadCoefficient:    0.5,
		HeatingCoefficient: 5,
		Relaxation:         0.1,
		MaxStep:            5,
		NeighborCoupling:   0,
		ActiveThreshold:    0,
		ActivePower:        0,
		FanCooling:         0,
		FanOnTemperature:   70,
		FanOffTemperature:  60,
		MaxFanSpeed:        5,
	}
}

func (p Params) floats() []float64 {
	return []float64{
		p.Ambient, p.Critical, p.Max,
		p.IdlePower, p.LoadCoefficient, p.HeatingCoefficient,
		p.Relaxation, p.MaxStep, p.NeighborCoupling,
		p.ActiveThreshold, p.ActivePower,
		p.FanCooling, p.FanOnTemperature, p.FanOffTemperature,
	}
}

// Validate checks the ranges of the coefficients.
func (p Params) Validate() error {
	for _, f := range p.floats() {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: coefficients must be finite", ErrInvalidParams)
		}
	}

	switch {
	case p.Critical <= p.Ambient:
		return fmt.Errorf("%w: critical temperature %g must exceed ambient %g",
			ErrInvalidParams, p.Critical, p.Ambient)
	case p.Max < p.Critical:
		return fmt.Errorf("%w: max temperature %g below critical %g",
			ErrInvalidParams, p.Max, p.Critical)
	case p.IdlePower < 0 || p.LoadCoefficient < 0:
		return fmt.Errorf("%w: power coefficients must not be negative",
			ErrInvalidParams)
	case p.HeatingCoefficient < 0:
		return fmt.Errorf("%w: heating coefficient must not be negative",
			ErrInvalidParams)
	case p.Relaxation <= 0 || p.Relaxation > 1:
		return fmt.Errorf("%w: relaxation %g must be in (0, 1]",
			ErrInvalidParams, p.Relaxation)
	case p.MaxStep <= 0:
		return fmt.Errorf("%w: max step %g must be positive",
			ErrInvalidParams, p.MaxStep)
	case p.NeighborCoupling < 0 || p.NeighborCoupling >= 1:
		return fmt.Errorf("%w: neighbor coupling %g must be in [0, 1)",
			ErrInvalidParams, p.NeighborCoupling)
	case p.ActiveThreshold < 0 || p.ActiveThreshold > 1:
		return fmt.Errorf("%w: active threshold %g must be in [0, 1]",
			ErrInvalidParams, p.ActiveThreshold)
	case p.ActivePower < 0:
		return fmt.Errorf("%w: active power must not be negative",
			ErrInvalidParams)
	case p.FanCooling < 0 || p.MaxFanSpeed < 0:
		return fmt.Errorf("%w: fan cooling and max fan speed must not be negative",
			ErrInvalidParams)
	case p.FanOffTemperature > p.FanOnTemperature:
		return fmt.Errorf("%w: fan off temperature %g above fan on temperature %g",
			ErrInvalidParams, p.FanOffTemperature, p.FanOnTemperature)
	}

	return nil
}

// Model updates the power and the temperature of routers.
type Model struct {
	params Params
}

// NewModel creates a Model. It panics if the parameters are invalid.
func NewModel(p Params) *Model {
	if err := p.Validate(); err != nil {
		panic(err)
	}

	return &Model{params: p}
}

// Params returns the coefficients of the model.
func (m *Model) Params() Params {
	return m.params
}

// IsThrottled tells if the router is too hot to accept arriving packets.
func (m *Model) IsThrottled(r *mesh.Router) bool {
	return r.Temperature >= m.params.Critical
}

// PowerState tells whether a router is idle or busy.
type PowerState int

// Power states.
const (
	Idle PowerState = iota
	Active
)

func (s PowerState) String() string {
	if s == Active {
		return "active"
	}

	return "idle"
}

// PowerState returns the power state of r from the occupancy of its queue.
func (m *Model) PowerState(r *mesh.Router) PowerState {
	threshold := m.params.ActiveThreshold
	if threshold <= 0 {
		return Idle
	}

	occupancy := float64(r.Queue.Size()) / float64(r.Queue.Capacity())
	if occupancy >= threshold {
		return Active
	}

	return Idle
}

// Power returns the power a router draws under the given load, in flits.
func (m *Model) Power(r *mesh.Router, load int) float64 {
	if !r.IsHealthy() {
		return 0
	}

	power := m.params.IdlePower + m.params.LoadCoefficient*float64(load)
	if m.PowerState(r) == Active {
		power += m.params.ActivePower
	}

	return power
}

// Target returns the equilibrium temperature for a load. neighborMean is
// only used when NeighborCoupling is positive.
func (m *Model) Target(load int, neighborMean float64) float64 {
	target := m.params.Ambient + m.params.HeatingCoefficient*float64(load)

	k := m.params.NeighborCoupling
	if k > 0 {
		target = (1-k)*target + k*neighborMean
	}

	return target
}

// Step returns the temperature after one cycle of relaxation toward target.
func (m *Model) Step(current, target float64) float64 {
	delta := m.params.Relaxation * (target - current)
	if math.Abs(delta) > m.params.MaxStep {
		delta = math.Copysign(m.params.MaxStep, delta)
	}

	return math.Min(current+delta, m.params.Max)
}

// Update recomputes the power and the temperature of r from its load in the
// current cycle, then adjusts its fan.
func (m *Model) Update(r *mesh.Router, neighborMean float64) {
	r.Power = m.Power(r, r.Load)

	target := m.Target(r.Load, neighborMean)
	if m.params.FanCooling > 0 && r.FanSpeed > 0 {
		target -= m.params.FanCooling * float64(r.FanSpeed)
		target = math.Max(target, m.params.Ambient)
	}

	r.Temperature = m.Step(r.Temperature, target)
	m.adjustFan(r)
}

func (m *Model) adjustFan(r *mesh.Router) {
	if m.params.FanCooling <= 0 {
		return
	}

	switch {
	case r.Temperature > m.params.FanOnTemperature:
		r.FanSpeed = min(r.FanSpeed+1, m.params.MaxFanSpeed)
	case r.Temperature < m.params.FanOffTemperature:
		r.FanSpeed = max(r.FanSpeed-1, 0)
	}
}

// Summary describes the thermal state of a topology after an update.
type Summary struct {
	TotalPower     float64
	MaxTemperature float64
	Throttled      int
	Active         int
	FansRunning    int

	// NewlyThrottled lists the routers that crossed the critical temperature
	// in this update.
	NewlyThrottled []mesh.Coordinate
}

// UpdateAll updates every router. Neighbor temperatures are read from the
// state before the update so that the result does not depend on the order in
// which routers are visited.
func (m *Model) UpdateAll(t *mesh.Topology) Summary {
	before := make([]float64, t.NumRouters())
	wasThrottled := make([]bool, t.NumRouters())

	for i := range before {
		r := t.RouterAt(i)
		before[i] = r.Temperature
		wasThrottled[i] = m.IsThrottled(r)
	}

	s := Summary{MaxTemperature: math.Inf(-1)}

	for i := range before {
		r := t.RouterAt(i)

		neighborMean := before[i]
		if m.params.NeighborCoupling > 0 {
			neighborMean = meanOf(t, r.Coord, before)
		}

		m.Update(r, neighborMean)

		s.TotalPower += r.Power
		s.MaxTemperature = math.Max(s.MaxTemperature, r.Temperature)

		if r.IsHealthy() && m.PowerState(r) == Active {
			s.Active++
		}

		if r.FanSpeed > 0 {
			s.FansRunning++
		}

		if m.IsThrottled(r) {
			s.Throttled++

			if !wasThrottled[i] {
				s.NewlyThrottled = append(s.NewlyThrottled, r.Coord)
			}
		}
	}

	return s
}

func meanOf(t *mesh.Topology, c mesh.Coordinate, temps []float64) float64 {
	neighbors := t.Neighbors(c)
	if len(neighbors) == 0 {
		return temps[t.Index(c)]
	}

	sum := 0.0
	for _, n := range neighbors {
		sum += temps[t.Index(n)]
	}

	return sum / float64(len(neighbors))
}
