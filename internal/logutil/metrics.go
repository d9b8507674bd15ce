package logutil

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/fx"
)

const processMetricsInterval = time.Minute

// RunProcessMetrics logs a periodic debug line with this process's own CPU
// and RSS usage. It is not a metrics pipeline (spec's Non-goals exclude one)
// — just the cheap self-diagnostic line the teacher's ambient stack carries
// regardless, so an operator tailing logs can eyeball a leak without needing
// a dashboard.
func RunProcessMetrics(lc fx.Lifecycle, logger *slog.Logger) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("logutil: process metrics unavailable", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go runMetricsLoop(ctx, proc, logger)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func runMetricsLoop(ctx context.Context, proc *process.Process, logger *slog.Logger) {
	ticker := time.NewTicker(processMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cpuPct, _ := proc.CPUPercentWithContext(ctx)
			mem, err := proc.MemoryInfoWithContext(ctx)
			if err != nil {
				continue
			}
			logger.Debug("process metrics", "cpu_percent", cpuPct, "rss_bytes", mem.RSS)
		}
	}
}
