// Package domain contains core concepts of the conversation engine.
// This file defines Message entities and related rules.
// Messages are append-only; the only mutation ever applied is the
// one-directional seen flag transition.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single entry of a conversation.
// Seq is assigned by the store under the per-conversation lock and is the
// authoritative order; CreatedAt is informational and may collide across
// fast successive sends.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text,omitempty"`
	Image          string    `json:"image,omitempty"`
	ImageMIME      string    `json:"image_mime,omitempty"`
	Seq            uint64    `json:"seq"`
	Seen           bool      `json:"seen"`
	CreatedAt      time.Time `json:"created_at"`
}

// Body carries the user-provided content of an outgoing message before
// the engine assigns identity, ordering and timestamps.
type Body struct {
	Text      string
	Image     string
	ImageMIME string
}

func (b Body) IsEmpty() bool {
	return b.Text == "" && b.Image == ""
}

// Summary is what the conversation list shows for a message.
// Image messages collapse to a marker so the list never carries payloads.
func (m Message) Summary() string {
	if m.Text != "" {
		return m.Text
	}
	return ImageMarker
}

// ImageMarker replaces image payloads in last-message summaries.
const ImageMarker = "\U0001F4F7 image"
