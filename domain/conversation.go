// Package domain contains core concepts of the conversation engine.
package domain

import (
	"strings"
	"time"
)

// pairSeparator never appears in user identifiers supplied by the auth
// collaborator, which keeps pair keys unambiguous.
const pairSeparator = "|"

// Conversation binds exactly two participants to an ordered message log.
// Its identifier is the deterministic pair key, which makes the
// "no duplicate conversation per pair" invariant structural: two users can
// only ever resolve to one conversation record.
type Conversation struct {
	ID           string      `json:"id"`
	Participants [2]string   `json:"participants"`
	LastMessage  LastMessage `json:"last_message"`
	NextSeq      uint64      `json:"next_seq"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// LastMessage is the denormalized summary shown in conversation lists.
type LastMessage struct {
	Text     string    `json:"text"`
	SenderID string    `json:"sender_id"`
	Seq      uint64    `json:"seq"`
	Seen     bool      `json:"seen"`
	At       time.Time `json:"at"`
}

// PairKey builds the canonical conversation identifier for two users.
// The key is symmetric: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + pairSeparator + b
}

func NewConversation(a, b string) Conversation {
	if a > b {
		a, b = b, a
	}
	// Sequence numbers are 1-based; zero marks an unset value.
	return Conversation{
		ID:           PairKey(a, b),
		Participants: [2]string{a, b},
		NextSeq:      1,
	}
}

func (c Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// PeerOf returns the other participant. Callers must have checked
// membership first; an unknown user yields the empty string.
func (c Conversation) PeerOf(userID string) string {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	}
	return ""
}

// ParticipantsOfKey decodes a pair key back into its two user identifiers.
func ParticipantsOfKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, pairSeparator)
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}
