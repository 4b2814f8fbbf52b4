package event

import (
	"threadly/domain"
)

type Kind string

const (
	KindNewMessage   Kind = "new_message"
	KindMessagesSeen Kind = "messages_seen"
	KindUserOnline   Kind = "user_online"
	KindUserOffline  Kind = "user_offline"
	KindTyping       Kind = "typing"
)

// DomainEvent is anything the delivery router can push to live connections.
// Critical events (messages, receipts) survive queue pressure longer than
// casual ones (presence, typing); a dropped event is recovered by the
// client through a full conversation-list fetch, never by a retry here.
type DomainEvent interface {
	EventKind() Kind
	Critical() bool
}

// NewMessage is emitted after a message was durably appended.
// OriginConn is the connection that sent the message; the router pushes to
// every other connection of both participants, which keeps the sender's
// additional sessions consistent.
type NewMessage struct {
	Conversation domain.Conversation
	Message      domain.Message
	OriginConn   int64
}

func (NewMessage) EventKind() Kind { return KindNewMessage }
func (NewMessage) Critical() bool  { return true }

// MessagesSeen notifies the original sender that the viewer has seen their
// latest message.
type MessagesSeen struct {
	ConversationID string
	SenderID       string
	ViewerID       string
}

func (MessagesSeen) EventKind() Kind { return KindMessagesSeen }
func (MessagesSeen) Critical() bool  { return true }

type UserOnline struct {
	UserID string
}

func (UserOnline) EventKind() Kind { return KindUserOnline }
func (UserOnline) Critical() bool  { return false }

type UserOffline struct {
	UserID string
}

func (UserOffline) EventKind() Kind { return KindUserOffline }
func (UserOffline) Critical() bool  { return false }

// Typing carries no state and is never persisted.
type Typing struct {
	ConversationID string
	UserID         string
	PeerID         string
	OriginConn     int64
}

func (Typing) EventKind() Kind { return KindTyping }
func (Typing) Critical() bool  { return false }
