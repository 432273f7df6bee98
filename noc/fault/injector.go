// Package fault implements the stochastic process that toggles the health of
// routers and links.
package fault

import (
	"fmt"
	"strings"

	"github.com/sarchlab/faultnoc/noc/mesh"
)

// Policy decides how faults evolve from one cycle to the next.
type Policy int

const (
	// Transient faults are re-sampled every cycle. An element that is faulty
	// in one cycle is healthy in the next unless it fails again.
	Transient Policy = iota

	// Sticky faults persist until a recovery draw heals them.
	Sticky
)

func (p Policy) String() string {
	switch p {
	case Transient:
		return "transient"
	case Sticky:
		return "sticky"
	default:
		return "unknown"
	}
}

// ParsePolicy converts "transient" or "sticky" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transient":
		return Transient, nil
	case "sticky":
		return Sticky, nil
	default:
		return Transient, fmt.Errorf("unknown fault policy %q", s)
	}
}

// RandomSource provides uniformly distributed numbers in [0, 1).
type RandomSource interface {
	Float64() float64
}

// Report summarizes one injection round.
type Report struct {
	NewlyFaulty   int
	Recovered     int
	FaultyRouters int
	FaultyLinks   int
}

// Injector draws one Bernoulli trial per router and per link each time it is
// invoked.
type Injector struct {
	policy   Policy
	recovery float64
	rng      RandomSource
}

// NewInjector creates an Injector. recovery is only used by the Sticky
// policy.
func NewInjector(policy Policy, recovery float64, rng RandomSource) *Injector {
	return &Injector{
		policy:   policy,
		recovery: recovery,
		rng:      rng,
	}
}

// Policy returns the policy of the injector.
func (i *Injector) Policy() Policy {
	return i.policy
}

// InjectFaults samples the health of every router, in index order, and then
// every link, in creation order. The topology is mutated in place.
func (i *Injector) InjectFaults(t *mesh.Topology, p float64) Report {
	report := Report{}

	for idx := 0; idx < t.NumRouters(); idx++ {
		r := t.RouterAt(idx)
		r.Health = i.next(r.Health, p, &report)

		if r.Health == mesh.Faulty {
			report.FaultyRouters++
		}
	}

	for idx := 0; idx < t.NumLinks(); idx++ {
		l := t.LinkAt(idx)
		l.Health = i.next(l.Health, p, &report)

		if l.Health == mesh.Faulty {
			report.FaultyLinks++
		}
	}

	return report
}

func (i *Injector) next(h mesh.Health, p float64, report *Report) mesh.Health {
	draw := i.rng.Float64()

	switch i.policy {
	case Sticky:
		if h == mesh.Faulty {
			if draw < i.recovery {
				report.Recovered++
				return mesh.Healthy
			}

			return mesh.Faulty
		}

		if draw < p {
			report.NewlyFaulty++
			return mesh.Faulty
		}

		return mesh.Healthy
	default:
		if draw < p {
			if h == mesh.Healthy {
				report.NewlyFaulty++
			}

			return mesh.Faulty
		}

		if h == mesh.Faulty {
			report.Recovered++
		}

		return mesh.Healthy
	}
}
