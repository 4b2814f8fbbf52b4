// Package observability aggregates engine counters for logs and the
// inspect page. It observes the pipeline, it never drives it.
package observability

import (
	"sync/atomic"
	"time"
)

// EngineMetrics tracks what flows through the engine. All counters are
// atomic; readers get a consistent-enough snapshot without locking.
type EngineMetrics struct {
	MessagesAppended   atomic.Uint64
	MessagesRouted     atomic.Uint64
	ReceiptsRouted     atomic.Uint64
	PresenceBroadcasts atomic.Uint64
	TypingRelayed      atomic.Uint64
	EventsDropped      atomic.Uint64
	startedAt          time.Time
}

func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{startedAt: time.Now().UTC()}
}

// Snapshot renders the counters for the debug page and the health worker.
func (m *EngineMetrics) Snapshot() map[string]any {
	return map[string]any{
		"uptime":              time.Since(m.startedAt).Round(time.Second).String(),
		"messages_appended":   m.MessagesAppended.Load(),
		"messages_routed":     m.MessagesRouted.Load(),
		"receipts_routed":     m.ReceiptsRouted.Load(),
		"presence_broadcasts": m.PresenceBroadcasts.Load(),
		"typing_relayed":      m.TypingRelayed.Load(),
		"events_dropped":      m.EventsDropped.Load(),
	}
}
