package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairKeyIsSymmetric(t *testing.T) {
	req := require.New(t)

	req.Equal(PairKey("alice", "bob"), PairKey("bob", "alice"))
	req.Equal("alice|bob", PairKey("bob", "alice"))

	conv := NewConversation("bob", "alice")
	req.Equal("alice|bob", conv.ID)
	req.Equal([2]string{"alice", "bob"}, conv.Participants)
}

func TestPeerOf(t *testing.T) {
	req := require.New(t)
	conv := NewConversation("alice", "bob")

	req.Equal("bob", conv.PeerOf("alice"))
	req.Equal("alice", conv.PeerOf("bob"))
	req.Empty(conv.PeerOf("mallory"))
}

func TestParticipantsOfKey(t *testing.T) {
	req := require.New(t)

	a, b, ok := ParticipantsOfKey("alice|bob")
	req.True(ok)
	req.Equal("alice", a)
	req.Equal("bob", b)

	_, _, ok = ParticipantsOfKey("not-a-pair")
	req.False(ok)
	_, _, ok = ParticipantsOfKey("|bob")
	req.False(ok)
}

func TestMessageSummaryCollapsesImages(t *testing.T) {
	req := require.New(t)

	req.Equal("hello", Message{Text: "hello"}.Summary())
	req.Equal(ImageMarker, Message{Image: "base64..."}.Summary())
	req.True(Body{}.IsEmpty())
	req.False(Body{Image: "base64..."}.IsEmpty())
}
