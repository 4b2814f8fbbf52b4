package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"threadly/contract"
	"threadly/domain/event"
	"threadly/moderation"
	"threadly/observability"
	"threadly/runtime/workers"
)

//go:embed censored/*
var censoredFolder embed.FS

// Orchestrator owns the engine's event channel and the supervised workers.
// Services publish domain events through Dispatch; the delivery worker is
// the only consumer. The orchestrator carries no business rules.
type Orchestrator struct {
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	metrics        *observability.EngineMetrics
	events         chan event.DomainEvent
	healthInterval time.Duration
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry contract.IRegistry,
	metrics *observability.EngineMetrics,
	bufferSize int,
	healthInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		metrics:        metrics,
		events:         make(chan event.DomainEvent, bufferSize),
		healthInterval: healthInterval,
	}
}

// Dispatch publishes an event toward the delivery router. It never blocks:
// an overflowing engine drops the event and relies on client resync, the
// same contract as a full per-connection sink.
func (o *Orchestrator) Dispatch(e event.DomainEvent) {
	select {
	case o.events <- e:
	default:
		o.metrics.EventsDropped.Add(1)
		o.log.Warn("Engine event channel full, dropping event", "kind", e.EventKind())
	}
}

// Registry exposes the presence registry for query surfaces.
func (o *Orchestrator) Registry() contract.IRegistry {
	return o.registry
}

// Start registers the workers and launches the supervisor.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(
		workers.NewDeliveryWorker(o.registry, o.events, o.metrics, o.log),
		workers.NewHealthWorker(o.registry, o.metrics, o.healthInterval, o.log),
	)

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
	return nil
}

// PrepareModeration loads the embedded censored word lists and builds the
// Aho-Corasick automaton.
func PrepareModeration(log *slog.Logger, charReplacement rune) (moderation.Moderator, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll("censored")
	if err != nil {
		return moderation.Moderator{}, err
	}

	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	return moderation.NewModerator(data.Words, charReplacement, log)
}

// Stop initiates a graceful shutdown by canceling the supervised context.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
