package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the engine's own process at a fixed
// interval and logs CPU and resident memory. Diagnostic only.
type HealthMonitoringWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, interval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, interval: interval}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping health monitoring")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while reading cpu usage", "err", err)
				continue
			}
			mem, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Error while reading memory usage", "err", err)
				continue
			}
			w.log.Debug("Engine health",
				"cpu_percent", cpu,
				"rss_mb", mem.RSS/(1024*1024),
			)
		}
	}
}
