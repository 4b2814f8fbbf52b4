package workers_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"threadly/domain"
	"threadly/domain/event"
	"threadly/observability"
	"threadly/runtime"
	"threadly/runtime/workers"
)

type recordingSink struct {
	mu     sync.Mutex
	id     int64
	events []event.DomainEvent
}

func (s *recordingSink) ID() int64 { return s.id }
func (s *recordingSink) Close()    {}
func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) recorded() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func startDelivery(t *testing.T, registry *runtime.Registry) chan event.DomainEvent {
	t.Helper()
	events := make(chan event.DomainEvent, 16)
	worker := workers.NewDeliveryWorker(registry, events, observability.NewEngineMetrics(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = worker.Run(ctx) }()
	return events
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition never satisfied")
}

func TestDelivery_NewMessage_Reaches_Recipient_And_Other_Sender_Tabs(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()

	senderTabA := &recordingSink{id: 1}
	senderTabB := &recordingSink{id: 2}
	recipient := &recordingSink{id: 3}
	registry.Register("alice", senderTabA)
	registry.Register("alice", senderTabB)
	registry.Register("bob", recipient)

	events := startDelivery(t, registry)

	conv := domain.NewConversation("alice", "bob")
	events <- event.NewMessage{
		Conversation: conv,
		Message:      domain.Message{SenderID: "alice", Text: "hi"},
		OriginConn:   senderTabA.ID(),
	}

	// The recipient and the sender's second tab both receive the push
	waitFor(t, func() bool { return len(recipient.recorded()) == 1 })
	waitFor(t, func() bool { return len(senderTabB.recorded()) == 1 })

	// The originating tab is responsible for its own optimistic update
	req.Empty(senderTabA.recorded())
}

func TestDelivery_NewMessage_Offline_Recipient_Is_Dropped_Silently(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()

	sender := &recordingSink{id: 1}
	registry.Register("alice", sender)

	events := startDelivery(t, registry)

	events <- event.NewMessage{
		Conversation: domain.NewConversation("alice", "bob"),
		Message:      domain.Message{SenderID: "alice", Text: "into the void"},
		OriginConn:   sender.ID(),
	}

	// Nothing happens, nothing errors; bob recovers via listConversations
	time.Sleep(50 * time.Millisecond)
	req.Empty(sender.recorded())
}

func TestDelivery_SeenReceipt_Reaches_Original_Sender(t *testing.T) {
	registry := runtime.NewRegistry()

	sender := &recordingSink{id: 1}
	viewer := &recordingSink{id: 2}
	registry.Register("alice", sender)
	registry.Register("bob", viewer)

	events := startDelivery(t, registry)

	events <- event.MessagesSeen{
		ConversationID: domain.PairKey("alice", "bob"),
		SenderID:       "alice",
		ViewerID:       "bob",
	}

	waitFor(t, func() bool { return len(sender.recorded()) == 1 })
	require.Empty(t, viewer.recorded())
}

func TestDelivery_Presence_Is_Broadcast_To_All_Connections(t *testing.T) {
	registry := runtime.NewRegistry()

	a := &recordingSink{id: 1}
	b := &recordingSink{id: 2}
	registry.Register("alice", a)
	registry.Register("bob", b)

	events := startDelivery(t, registry)

	events <- event.UserOnline{UserID: "clara"}

	waitFor(t, func() bool { return len(a.recorded()) == 1 && len(b.recorded()) == 1 })
}

func TestDelivery_Typing_Reaches_Peer_Only(t *testing.T) {
	registry := runtime.NewRegistry()

	typerTab := &recordingSink{id: 1}
	peer := &recordingSink{id: 2}
	registry.Register("alice", typerTab)
	registry.Register("bob", peer)

	events := startDelivery(t, registry)

	events <- event.Typing{
		ConversationID: domain.PairKey("alice", "bob"),
		UserID:         "alice",
		PeerID:         "bob",
		OriginConn:     typerTab.ID(),
	}

	waitFor(t, func() bool { return len(peer.recorded()) == 1 })
	require.Empty(t, typerTab.recorded())
}
