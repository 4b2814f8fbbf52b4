//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"threadly/domain"
	"threadly/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Dispatcher publishes domain events toward the delivery router.
type Dispatcher interface {
	Dispatch(e event.DomainEvent)
}

// EventSink is the outbound side of a live connection.
// Consume must never block the caller: delivery is fire-and-forget and a
// full queue resolves by dropping, not by back-pressure on the router.
type EventSink interface {
	ID() int64
	Consume(ctx context.Context, e event.DomainEvent) error
	Close()
}

// IRegistry is the presence registry: userID -> set of live connections.
// A user appears in the registry iff they have at least one connection.
type IRegistry interface {
	Register(userID string, sink EventSink) (wentOnline bool)
	Unregister(userID string, connID int64) (wentOffline bool)
	IsOnline(userID string) bool
	ConnectionsOf(userID string) []EventSink
	Connections() []EventSink
	CountUsers() int
	CountConnections() int
}

// IConversationStore is the authoritative record of conversations and
// their ordered messages.
type IConversationStore interface {
	AppendMessage(senderID, conversationID, peerID string, body domain.Body, at time.Time) (domain.Message, domain.Conversation, error)
	MarkSeen(conversationID, viewerID string) (*domain.Message, error)
	ListConversations(userID string) ([]domain.Conversation, error)
	GetMessages(conversationID, viewerID string, cursor *string) ([]domain.Message, *string, error)
}

type IChatService interface {
	Connect(userID string, sink EventSink)
	Disconnect(userID string, connID int64)
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	MarkConversationSeen(cmd domain.MarkSeenCommand) error
	Typing(cmd domain.TypingCommand) error
	ListConversations(userID string) ([]domain.Conversation, error)
	GetMessages(conversationID, viewerID string, cursor *string) ([]domain.Message, *string, error)
	IsOnline(userID string) bool
}
