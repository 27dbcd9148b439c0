package system

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Resources is a point-in-time view of the process and host.
type Resources struct {
	LogicalCPUs     int     `yaml:"logical_cpus"`
	ProcessRSS      uint64  `yaml:"process_rss_bytes"`
	ProcessCPU      float64 `yaml:"process_cpu_percent"`
	HostMemoryTotal uint64  `yaml:"host_memory_total_bytes"`
	HostMemoryUsed  float64 `yaml:"host_memory_used_percent"`
}

// Snapshot collects what it can; fields it cannot read stay zero.
func Snapshot() Resources {
	var r Resources

	if n, err := cpu.Counts(true); err == nil {
		r.LogicalCPUs = n
	} else {
		r.LogicalCPUs = runtime.NumCPU()
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfo(); err == nil {
			r.ProcessRSS = info.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			r.ProcessCPU = pct
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		r.HostMemoryTotal = vm.Total
		r.HostMemoryUsed = vm.UsedPercent
	}
	return r
}

// DefaultWorkers is the number of logical CPUs.
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
