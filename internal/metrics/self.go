package metrics

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats is a point-in-time resource snapshot of the running daemon.
type ProcessStats struct {
	PID        int32     `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryMB   float64   `json:"memory_mb"`
	MemoryRSS  uint64    `json:"memory_rss"`
	NumThreads int32     `json:"num_threads"`
	NumFDs     int32     `json:"num_fds,omitempty"` // Unix only
	Goroutines int       `json:"goroutines"`
	Timestamp  time.Time `json:"timestamp"`
}

// SelfStats samples the current process.
func SelfStats() (ProcessStats, error) {
	return statsFor(int32(os.Getpid()))
}

func statsFor(pid int32) (ProcessStats, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to create process handle: %w", err)
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to get memory info: %w", err)
	}
	st := ProcessStats{
		PID:        pid,
		MemoryMB:   float64(memInfo.RSS) / 1024 / 1024,
		MemoryRSS:  memInfo.RSS,
		Goroutines: runtime.NumGoroutine(),
		Timestamp:  time.Now().UTC(),
	}
	// CPU and thread counts are best effort; some platforms refuse them.
	if cpu, err := proc.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if n, err := proc.NumThreads(); err == nil {
		st.NumThreads = n
	}
	if runtime.GOOS != "windows" {
		if n, err := proc.NumFDs(); err == nil {
			st.NumFDs = n
		}
	}
	return st, nil
}

var (
	selfCPU = prometheus.NewDesc("webwatch_process_cpu_percent",
		"CPU usage percentage of the webwatch process.", nil, nil)
	selfMem = prometheus.NewDesc("webwatch_process_memory_mb",
		"Resident memory of the webwatch process in MB.", nil, nil)
	selfThreads = prometheus.NewDesc("webwatch_process_num_threads",
		"Number of OS threads of the webwatch process.", nil, nil)
)

// selfCollector samples the daemon on every scrape instead of on a ticker.
type selfCollector struct{}

func (selfCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- selfCPU
	ch <- selfMem
	ch <- selfThreads
}

func (selfCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := SelfStats()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(selfCPU, prometheus.GaugeValue, st.CPUPercent)
	ch <- prometheus.MustNewConstMetric(selfMem, prometheus.GaugeValue, st.MemoryMB)
	ch <- prometheus.MustNewConstMetric(selfThreads, prometheus.GaugeValue, float64(st.NumThreads))
}
