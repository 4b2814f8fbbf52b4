package workers

import (
	"context"
	"log/slog"

	"threadly/contract"
	"threadly/domain/event"
	"threadly/observability"
)

// Ensure *DeliveryWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*DeliveryWorker)(nil)

// DeliveryWorker is the delivery router. It consumes the engine's event
// channel, resolves target connections through the presence registry, and
// pushes events onto each target's outbound sink. Delivery is best effort:
// offline recipients are skipped silently and a slow consumer can only
// affect its own queue, never this loop.
type DeliveryWorker struct {
	registry contract.IRegistry
	events   chan event.DomainEvent
	metrics  *observability.EngineMetrics
	log      *slog.Logger
}

func NewDeliveryWorker(
	registry contract.IRegistry,
	events chan event.DomainEvent,
	metrics *observability.EngineMetrics,
	log *slog.Logger) *DeliveryWorker {
	return &DeliveryWorker{
		registry: registry,
		events:   events,
		metrics:  metrics,
		log:      log,
	}
}

func (w *DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case e, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.route(ctx, e)
		}
	}
}

func (w *DeliveryWorker) route(ctx context.Context, e event.DomainEvent) {
	switch evt := e.(type) {
	case event.NewMessage:
		// Both participants receive the push, except the originating
		// connection: the recipient's tabs plus the sender's other tabs.
		for _, userID := range evt.Conversation.Participants {
			w.pushTo(ctx, userID, evt, evt.OriginConn)
		}
		w.metrics.MessagesRouted.Add(1)

	case event.MessagesSeen:
		// The receipt travels back to the original sender only.
		w.pushTo(ctx, evt.SenderID, evt, 0)
		w.metrics.ReceiptsRouted.Add(1)

	case event.Typing:
		w.pushTo(ctx, evt.PeerID, evt, evt.OriginConn)
		w.metrics.TypingRelayed.Add(1)

	case event.UserOnline, event.UserOffline:
		// Conservative broadcast: every live connection hears presence
		// changes; the registry stays the single source of truth.
		for _, s := range w.registry.Connections() {
			_ = s.Consume(ctx, e)
		}
		w.metrics.PresenceBroadcasts.Add(1)

	default:
		w.log.Debug("Unroutable event", "kind", e.EventKind())
	}
}

// pushTo fans an event out to every connection of a user, skipping the
// originating connection when one is given.
func (w *DeliveryWorker) pushTo(ctx context.Context, userID string, e event.DomainEvent, skipConn int64) {
	for _, s := range w.registry.ConnectionsOf(userID) {
		if skipConn != 0 && s.ID() == skipConn {
			continue
		}
		if err := s.Consume(ctx, e); err != nil {
			// A closed or full sink is not a delivery failure; the client
			// reconciles through a full list fetch on reconnect.
			w.metrics.EventsDropped.Add(1)
		}
	}
}
