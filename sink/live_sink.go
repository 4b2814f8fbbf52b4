// Package sink holds the EventSink implementations consumed by the
// delivery router. A sink is the outbound half of one live connection.
package sink

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"threadly/domain/event"
	"threadly/errors"
)

var sinkIDCounter int64

// LiveSink is a bounded, two-lane outbound queue for a live connection.
// Critical events (messages, receipts) and casual events (presence, typing)
// travel on separate lanes: under pressure a casual event is dropped first,
// and a full critical lane evicts its oldest entry rather than blocking the
// producer. Recovery after a drop is the client's full resync, never a
// retried push.
type LiveSink struct {
	id        int64
	critical  chan event.DomainEvent
	casual    chan event.DomainEvent
	closeChan chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
	dropped   atomic.Int64
}

func NewLiveSink(log *slog.Logger, bufferSize int) *LiveSink {
	return &LiveSink{
		id:        atomic.AddInt64(&sinkIDCounter, 1),
		critical:  make(chan event.DomainEvent, bufferSize),
		casual:    make(chan event.DomainEvent, bufferSize),
		closeChan: make(chan struct{}),
		log:       log,
	}
}

func (s *LiveSink) ID() int64 {
	return s.id
}

// Consume implements contract.EventSink. It never blocks: the router's
// append/markSeen path must not stall on a slow or unresponsive consumer.
func (s *LiveSink) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case <-s.closeChan:
		// In-flight pushes to a just-closed connection are discarded silently.
		return nil
	default:
	}

	if !e.Critical() {
		select {
		case s.casual <- e:
		default:
			s.dropped.Add(1)
			s.log.Debug("Casual event dropped", "sink_id", s.id, "kind", e.EventKind())
		}
		return nil
	}

	select {
	case s.critical <- e:
		return nil
	default:
	}

	// Evict the oldest critical event to make room for the newest one.
	select {
	case <-s.critical:
		s.dropped.Add(1)
		s.log.Warn("Critical lane full, evicting oldest event", "sink_id", s.id)
	default:
	}
	select {
	case s.critical <- e:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Next blocks until an event is available, preferring the critical lane.
// It returns ErrSinkClosed once the sink is closed and both lanes drained.
func (s *LiveSink) Next(ctx context.Context) (event.DomainEvent, error) {
	// Drain critical first so receipts never trail behind typing noise.
	select {
	case e := <-s.critical:
		return e, nil
	default:
	}

	select {
	case e := <-s.critical:
		return e, nil
	case e := <-s.casual:
		return e, nil
	case <-s.closeChan:
		return nil, errors.ErrSinkClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the outbound queue. Safe to call more than once.
func (s *LiveSink) Close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
	})
}

// Dropped reports how many events this sink has discarded so far.
func (s *LiveSink) Dropped() int64 {
	return s.dropped.Load()
}
