package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"

	"threadly/contract"
	"threadly/domain"
	"threadly/domain/event"
	"threadly/errors"
	"threadly/moderation"
	"threadly/observability"
)

var _ contract.IChatService = (*ChatService)(nil)

// ChatService is the application facade over the engine: it validates and
// sanitizes inbound intents, drives the conversation store synchronously
// (integrity errors surface to the caller), and hands the resulting domain
// events to the dispatcher for best-effort live delivery.
type ChatService struct {
	store      contract.IConversationStore
	registry   contract.IRegistry
	dispatcher contract.Dispatcher
	reconciler *SeenReconciler
	moderator  *moderation.Moderator
	metrics    *observability.EngineMetrics
	log        *slog.Logger
}

func NewChatService(
	store contract.IConversationStore,
	registry contract.IRegistry,
	dispatcher contract.Dispatcher,
	moderator *moderation.Moderator,
	metrics *observability.EngineMetrics,
	log *slog.Logger) *ChatService {
	return &ChatService{
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		reconciler: NewSeenReconciler(store, dispatcher, log),
		moderator:  moderator,
		metrics:    metrics,
		log:        log,
	}
}

// Connect registers a live connection; the first connection of a user
// broadcasts "went online".
func (s *ChatService) Connect(userID string, sink contract.EventSink) {
	if s.registry.Register(userID, sink) {
		s.dispatcher.Dispatch(event.UserOnline{UserID: userID})
	}
}

// Disconnect unregisters a live connection; the last connection of a user
// broadcasts "went offline".
func (s *ChatService) Disconnect(userID string, connID int64) {
	if s.registry.Unregister(userID, connID) {
		s.dispatcher.Dispatch(event.UserOffline{UserID: userID})
	}
}

// SendMessage appends a message and publishes the corresponding event.
// The append is synchronous: NotParticipant and malformed bodies come back
// to the caller before any state mutated.
func (s *ChatService) SendMessage(_ context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	body := cmd.Body
	if body.IsEmpty() {
		return domain.Message{}, errors.ErrEmptyBody
	}

	if body.Image != "" {
		mime, err := domain.SniffImage(body.Image)
		if err != nil {
			return domain.Message{}, err
		}
		body.ImageMIME = mime
	}

	if body.Text != "" {
		info := whatlanggo.Detect(body.Text)
		censored, found := s.moderator.Censor(body.Text)
		if len(found) > 0 {
			s.log.Warn("Message content censored",
				"sender_id", cmd.SenderID,
				"lang", info.Lang.Iso6391(),
				"words", len(found))
		}
		body.Text = censored
	}

	at := cmd.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	msg, conv, err := s.store.AppendMessage(cmd.SenderID, cmd.ConversationID, cmd.To, body, at)
	if err != nil {
		return domain.Message{}, err
	}
	s.metrics.MessagesAppended.Add(1)

	s.dispatcher.Dispatch(event.NewMessage{
		Conversation: conv,
		Message:      msg,
		OriginConn:   cmd.OriginConn,
	})
	return msg, nil
}

// MarkConversationSeen runs the seen-receipt reconciliation for an
// explicit activation signal.
func (s *ChatService) MarkConversationSeen(cmd domain.MarkSeenCommand) error {
	return s.reconciler.Reconcile(cmd)
}

// Typing relays a typing indicator to the peer. The conversation identifier
// encodes the participant pair, so membership is checked without touching
// the store; nothing is persisted.
func (s *ChatService) Typing(cmd domain.TypingCommand) error {
	a, b, ok := domain.ParticipantsOfKey(cmd.ConversationID)
	if !ok {
		return errors.ErrUnknownConversation
	}

	var peer string
	switch cmd.UserID {
	case a:
		peer = b
	case b:
		peer = a
	default:
		return errors.ErrNotParticipant
	}

	s.dispatcher.Dispatch(event.Typing{
		ConversationID: cmd.ConversationID,
		UserID:         cmd.UserID,
		PeerID:         peer,
		OriginConn:     cmd.OriginConn,
	})
	return nil
}

func (s *ChatService) ListConversations(userID string) ([]domain.Conversation, error) {
	return s.store.ListConversations(userID)
}

func (s *ChatService) GetMessages(conversationID, viewerID string, cursor *string) ([]domain.Message, *string, error) {
	return s.store.GetMessages(conversationID, viewerID, cursor)
}

func (s *ChatService) IsOnline(userID string) bool {
	return s.registry.IsOnline(userID)
}
