package gateway

import (
	"github.com/go-playground/validator/v10"

	"threadly/domain"
	"threadly/domain/event"
)

var validate = validator.New()

// Frame types accepted on the live channel.
const (
	FrameHello       = "hello"
	FrameSendMessage = "send_message"
	FrameMarkSeen    = "mark_seen"
	FrameTyping      = "typing"
	FrameError       = "error"
)

// InboundFrame is the envelope every client frame travels in. The Type
// discriminator selects which payload fields are meaningful; per-type
// required fields are enforced after decoding.
type InboundFrame struct {
	Type           string `json:"type" validate:"required,oneof=hello send_message mark_seen typing"`
	Token          string `json:"token,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	To             string `json:"to,omitempty"`
	Text           string `json:"text,omitempty"`
	Image          string `json:"image,omitempty"`
}

type helloFrame struct {
	Token string `validate:"required"`
}

type sendMessageFrame struct {
	ConversationID string `validate:"required_without=To"`
	To             string `validate:"required_without=ConversationID"`
}

type markSeenFrame struct {
	ConversationID string `validate:"required"`
}

type typingFrame struct {
	ConversationID string `validate:"required"`
}

// Validate checks the envelope and the per-type required fields.
func (f InboundFrame) Validate() error {
	if err := validate.Struct(f); err != nil {
		return err
	}
	switch f.Type {
	case FrameHello:
		return validate.Struct(helloFrame{Token: f.Token})
	case FrameSendMessage:
		// Either an existing conversation or a peer for lazy creation.
		return validate.Struct(sendMessageFrame{
			ConversationID: f.ConversationID,
			To:             f.To,
		})
	case FrameMarkSeen:
		return validate.Struct(markSeenFrame{ConversationID: f.ConversationID})
	case FrameTyping:
		return validate.Struct(typingFrame{ConversationID: f.ConversationID})
	}
	return nil
}

// newMessageFrame is pushed to both participants when a message lands.
// The conversation summary rides along so clients can update their list
// without a refetch.
type newMessageFrame struct {
	Type         string              `json:"type"`
	Message      domain.Message      `json:"message"`
	Conversation domain.Conversation `json:"conversation"`
}

type messagesSeenFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	ViewerID       string `json:"viewer_id"`
}

type presenceFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type typingOutFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// encodeEvent maps a routed domain event onto its wire frame.
func encodeEvent(e event.DomainEvent) any {
	switch ev := e.(type) {
	case event.NewMessage:
		return newMessageFrame{Type: string(event.KindNewMessage), Message: ev.Message, Conversation: ev.Conversation}
	case event.MessagesSeen:
		return messagesSeenFrame{Type: string(event.KindMessagesSeen), ConversationID: ev.ConversationID, ViewerID: ev.ViewerID}
	case event.UserOnline:
		return presenceFrame{Type: string(event.KindUserOnline), UserID: ev.UserID}
	case event.UserOffline:
		return presenceFrame{Type: string(event.KindUserOffline), UserID: ev.UserID}
	case event.Typing:
		return typingOutFrame{Type: string(event.KindTyping), ConversationID: ev.ConversationID, UserID: ev.UserID}
	default:
		return nil
	}
}
