package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"threadly/contract"
	"threadly/observability"
)

var _ contract.Worker = (*HealthWorker)(nil)

// HealthWorker periodically logs process health (CPU, RSS) together with
// the engine counters so an operator can spot pressure without attaching
// a profiler.
type HealthWorker struct {
	registry contract.IRegistry
	metrics  *observability.EngineMetrics
	interval time.Duration
	log      *slog.Logger
}

func NewHealthWorker(
	registry contract.IRegistry,
	metrics *observability.EngineMetrics,
	interval time.Duration,
	log *slog.Logger) *HealthWorker {
	return &HealthWorker{
		registry: registry,
		metrics:  metrics,
		interval: interval,
		log:      log,
	}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			w.log.Info("Engine health",
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"online_users", w.registry.CountUsers(),
				"live_connections", w.registry.CountConnections(),
				"messages_routed", w.metrics.MessagesRouted.Load(),
				"events_dropped", w.metrics.EventsDropped.Load(),
			)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
