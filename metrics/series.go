package metrics

import (
	"iter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is the ordered, finite sequence of snapshots produced by a run.
type Series struct {
	snapshots  []Snapshot
	latencySum float64
	delivered  int
}

// Len returns the number of snapshots.
func (s *Series) Len() int {
	return len(s.snapshots)
}

// At returns the i-th snapshot.
func (s *Series) At(i int) Snapshot {
	return s.snapshots[i]
}

// All iterates over the snapshots in cycle order.
func (s *Series) All() iter.Seq2[int, Snapshot] {
	return func(yield func(int, Snapshot) bool) {
		for i, snap := range s.snapshots {
			if !yield(i, snap) {
				return
			}
		}
	}
}

// Snapshots returns a copy of the snapshots.
func (s *Series) Snapshots() []Snapshot {
	out := make([]Snapshot, len(s.snapshots))
	copy(out, s.snapshots)

	return out
}

// Latencies returns the per-cycle average latencies.
func (s *Series) Latencies() []float64 {
	return s.column(func(x Snapshot) float64 { return x.AvgLatency })
}

// Throughputs returns the per-cycle throughputs.
func (s *Series) Throughputs() []float64 {
	return s.column(func(x Snapshot) float64 { return float64(x.Throughput) })
}

// Powers returns the per-cycle total power.
func (s *Series) Powers() []float64 {
	return s.column(func(x Snapshot) float64 { return x.TotalPower })
}

func (s *Series) column(f func(Snapshot) float64) []float64 {
	out := make([]float64, len(s.snapshots))
	for i, snap := range s.snapshots {
		out[i] = f(snap)
	}

	return out
}

// Summary holds the aggregate statistics of a run.
type Summary struct {
	Cycles int

	// AvgLatency is the mean latency over every delivered packet.
	AvgLatency float64

	// AvgThroughput is the mean number of packets delivered per cycle.
	AvgThroughput float64

	// AvgPower is the mean total power per cycle.
	AvgPower float64

	// FinalPower is the total power of the last cycle.
	FinalPower float64

	Injected      int
	Delivered     int
	Dropped       int
	DeliveryRatio float64

	PeakTemperature      float64
	PeakThrottledRouters int
}

// Summary computes the aggregate statistics.
func (s *Series) Summary() Summary {
	sum := Summary{Cycles: len(s.snapshots)}
	if len(s.snapshots) == 0 {
		return sum
	}

	throughputs := s.Throughputs()
	powers := s.Powers()

	sum.AvgThroughput = stat.Mean(throughputs, nil)
	sum.AvgPower = stat.Mean(powers, nil)
	sum.FinalPower = powers[len(powers)-1]
	sum.Delivered = int(floats.Sum(throughputs))

	if s.delivered > 0 {
		sum.AvgLatency = s.latencySum / float64(s.delivered)
	}

	temps := s.column(func(x Snapshot) float64 { return x.MaxTemperature })
	sum.PeakTemperature = floats.Max(temps)

	for _, snap := range s.snapshots {
		sum.Injected += snap.Injected
		sum.Dropped += snap.Dropped

		if snap.ThrottledRouters > sum.PeakThrottledRouters {
			sum.PeakThrottledRouters = snap.ThrottledRouters
		}
	}

	if sum.Injected > 0 {
		sum.DeliveryRatio = float64(sum.Delivered) / float64(sum.Injected)
	}

	return sum
}
