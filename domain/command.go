package domain

import (
	"time"
)

// SendMessageCommand is the intent of a participant to append a message.
// Either ConversationID (existing conversation) or To (lazy creation from
// the participant pair) must be set. OriginConn identifies the live
// connection that issued the command so the router can skip echoing the
// event back to it.
type SendMessageCommand struct {
	ConversationID string
	To             string
	SenderID       string
	Body           Body
	OriginConn     int64
	CreatedAt      time.Time
}

// MarkSeenCommand is the explicit client signal that a viewer activated a
// conversation. It is never inferred from message delivery.
type MarkSeenCommand struct {
	ConversationID string
	ViewerID       string
}

// TypingCommand is a stateless pass-through broadcast toward the peer.
type TypingCommand struct {
	ConversationID string
	UserID         string
	OriginConn     int64
}
