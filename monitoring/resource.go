package monitoring

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/process"
)

// ResourceUsage is the CPU and memory usage of the current process.
type ResourceUsage struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

// String formats the usage for humans.
func (r ResourceUsage) String() string {
	return fmt.Sprintf("cpu %.1f%%, rss %.1f MiB",
		r.CPUPercent, float64(r.MemorySize)/(1<<20))
}

// Resources samples the resource usage of the current process.
func Resources() (ResourceUsage, error) {
	pid := os.Getpid()

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("opening process %d: %w", pid, err)
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("reading cpu usage: %w", err)
	}

	memoryInfo, err := p.MemoryInfo()
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("reading memory usage: %w", err)
	}

	return ResourceUsage{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	}, nil
}
