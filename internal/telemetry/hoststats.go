package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// HostSample is the host-level telemetry record.
type HostSample struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemUsageMB  float64 `json:"mem_usage_mb"`
	MemTotalMB  float64 `json:"mem_total_mb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskTotalGB float64 `json:"disk_total_gb"`
}

const hostSampleInterval = 3 * time.Second

type cpuTotals struct {
	total float64
	idle  float64
}

// StreamHostStats samples CPU from /proc/stat, memory from /proc/meminfo,
// and disk usage for dataDir from `df -B1`, every 3 seconds, until ctx is
// cancelled. No third-party host-metrics library is wired in the example
// pack (no gopsutil-style dependency appears anywhere), so this sampler is
// a direct stdlib+subprocess reading of the kernel's own accounting files.
func StreamHostStats(ctx context.Context, dataDir string) <-chan HostSample {
	out := make(chan HostSample, 4)

	go func() {
		defer close(out)

		prev, err := readCPUTotals()
		if err != nil {
			prev = cpuTotals{}
		}

		ticker := time.NewTicker(hostSampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			sample := HostSample{}

			if cur, err := readCPUTotals(); err == nil {
				totalDelta := cur.total - prev.total
				idleDelta := cur.idle - prev.idle
				if totalDelta > 0 {
					sample.CPUPercent = clamp(0, 100, (totalDelta-idleDelta)/totalDelta*100)
				}
				prev = cur
			}

			if memTotal, memAvail, err := readMemInfo(); err == nil {
				sample.MemTotalMB = memTotal / mib
				sample.MemUsageMB = (memTotal - memAvail) / mib
			}

			if used, total, err := readDiskUsage(dataDir); err == nil {
				const gib = 1024 * 1024 * 1024
				sample.DiskUsedGB = float64(used) / gib
				sample.DiskTotalGB = float64(total) / gib
			}

			select {
			case out <- sample:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// readCPUTotals parses the kernel's aggregate CPU line from /proc/stat:
// "cpu  user nice system idle iowait irq softirq steal guest guest_nice".
func readCPUTotals() (cpuTotals, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return cpuTotals{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		var total float64
		var idle float64
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				continue
			}
			total += v
			if i == 3 || i == 4 { // idle, iowait
				idle += v
			}
		}
		return cpuTotals{total: total, idle: idle}, nil
	}
	return cpuTotals{}, fmt.Errorf("no cpu line in /proc/stat")
}

// readMemInfo returns MemTotal and MemAvailable in bytes from
// /proc/meminfo, which reports values in KiB.
func readMemInfo() (total, available float64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = parseMemInfoKB(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			available = parseMemInfoKB(line)
		}
	}
	return total, available, scanner.Err()
}

func parseMemInfoKB(line string) float64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	kb, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}

// readDiskUsage shells out to `df -B1 <path>` and parses the second line
// for total and used bytes.
func readDiskUsage(path string) (used, total int64, err error) {
	cmd := exec.Command("df", "-B1", path)
	output, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) < 2 {
		return 0, 0, fmt.Errorf("unexpected df output")
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("unexpected df fields")
	}

	total, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	used, err = strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return used, total, nil
}
