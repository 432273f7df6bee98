package datarecording

import (
	"os"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

// RunInfo is one property of a simulation run.
type RunInfo struct {
	Property string
	Value    string
}

// RunRecorder records how a run was launched and when it started and ended.
type RunRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []RunInfo
}

// NewRunRecorder creates the run_info table in the recorder.
func NewRunRecorder(recorder DataRecorder) *RunRecorder {
	r := &RunRecorder{
		tableName: "run_info",
		recorder:  recorder,
	}

	recorder.CreateTable(r.tableName, RunInfo{})

	return r
}

// Start logs the start time and the command line.
func (r *RunRecorder) Start() {
	r.entries = append(r.entries,
		RunInfo{"Start Time", time.Now().Format(timeLayout)},
		RunInfo{"Command", strings.Join(os.Args, " ")},
	)

	if wd, err := os.Getwd(); err == nil {
		r.entries = append(r.entries, RunInfo{"Working Directory", wd})
	}
}

// Set records an arbitrary property, such as a configuration value.
func (r *RunRecorder) Set(property, value string) {
	r.entries = append(r.entries, RunInfo{property, value})
}

// End writes every property along with the end time.
func (r *RunRecorder) End() {
	for _, entry := range r.entries {
		r.recorder.InsertData(r.tableName, entry)
	}

	r.recorder.InsertData(r.tableName,
		RunInfo{"End Time", time.Now().Format(timeLayout)})

	r.entries = nil

	r.recorder.Flush()
}
