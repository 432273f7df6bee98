package monitoring

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"runtime/pprof"
	"sort"

	"github.com/google/pprof/profile"
)

// ErrProfilerRunning is returned when a profile is started twice.
var ErrProfilerRunning = errors.New("profiler already running")

// A Profiler collects a CPU profile of the process.
type Profiler struct {
	buf     *bytes.Buffer
	running bool
}

// Start starts collecting.
func (p *Profiler) Start() error {
	if p.running {
		return ErrProfilerRunning
	}

	p.buf = bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(p.buf)
	if err != nil {
		return fmt.Errorf("starting cpu profile: %w", err)
	}

	p.running = true

	return nil
}

// Running tells if the profiler is collecting.
func (p *Profiler) Running() bool {
	return p.running
}

// Stop stops collecting and parses the profile.
func (p *Profiler) Stop() (*profile.Profile, error) {
	if !p.running {
		return nil, errors.New("profiler not running")
	}

	pprof.StopCPUProfile()
	p.running = false

	prof, err := profile.ParseData(p.buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parsing cpu profile: %w", err)
	}

	return prof, nil
}

// FunctionCost is the flat cost of one function in a profile.
type FunctionCost struct {
	Name  string
	Value int64
}

// TopFunctions returns the n functions with the largest flat cost, measured
// with the last sample type of the profile.
func TopFunctions(prof *profile.Profile, n int) []FunctionCost {
	if len(prof.SampleType) == 0 {
		return nil
	}

	valueIdx := len(prof.SampleType) - 1
	costs := make(map[string]int64)

	for _, s := range prof.Sample {
		if len(s.Location) == 0 || len(s.Location[0].Line) == 0 {
			continue
		}

		fn := s.Location[0].Line[0].Function
		if fn == nil {
			continue
		}

		costs[fn.Name] += s.Value[valueIdx]
	}

	list := make([]FunctionCost, 0, len(costs))
	for name, v := range costs {
		list = append(list, FunctionCost{Name: name, Value: v})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Value != list[j].Value {
			return list[i].Value > list[j].Value
		}

		return list[i].Name < list[j].Name
	})

	if len(list) > n {
		list = list[:n]
	}

	return list
}

// WriteProfile writes the profile in the gzipped protobuf format read by
// go tool pprof.
func WriteProfile(w io.Writer, prof *profile.Profile) error {
	return prof.Write(w)
}
