package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
)

// StatsSource opens a fresh newline-delimited-JSON stats stream for a
// container; each call must return an independent reader.
type StatsSource interface {
	StatsStream(ctx context.Context, name string) (io.ReadCloser, error)
}

// rawStats mirrors the subset of the Engine API's stats JSON object the
// core needs.
type rawStats struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs  uint32 `json:"online_cpus"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
		Limit uint64 `json:"limit"`
	} `json:"memory_stats"`
}

// Sample is the normalized stats record emitted to subscribers.
type Sample struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemUsageMB float64 `json:"mem_usage_mb"`
	MemLimitMB float64 `json:"mem_limit_mb"`
}

const mib = 1024 * 1024

func computeSample(raw rawStats) Sample {
	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)

	var pct float64
	if sysDelta > 0 {
		online := float64(raw.CPUStats.OnlineCPUs)
		if online == 0 {
			online = 1
		}
		pct = (cpuDelta / sysDelta) * online * 100
	}
	pct = clamp(0, 100, pct)

	return Sample{
		CPUPercent: pct,
		MemUsageMB: float64(raw.MemoryStats.Usage) / mib,
		MemLimitMB: float64(raw.MemoryStats.Limit) / mib,
	}
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StreamStats opens one stats stream for name and sends computed samples
// to the returned channel until ctx is cancelled or the stream ends.
func StreamStats(ctx context.Context, src StatsSource, name string) (<-chan Sample, error) {
	rc, err := src.StatsStream(ctx, name)
	if err != nil {
		return nil, err
	}

	out := make(chan Sample, 16)
	go func() {
		defer close(out)
		defer rc.Close()

		go func() {
			<-ctx.Done()
			rc.Close()
		}()

		dec := json.NewDecoder(rc)
		for {
			var raw rawStats
			if err := dec.Decode(&raw); err != nil {
				if !errors.Is(err, io.EOF) {
					// Transient decode hiccup: swallow and close the stream.
				}
				return
			}
			select {
			case out <- computeSample(raw):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
