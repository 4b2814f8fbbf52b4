package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"threadly/domain"
	"threadly/domain/event"
)

func TestInboundFrameValidation(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		description string
		frame       InboundFrame
		wantErr     bool
	}{
		{"Hello with token", InboundFrame{Type: FrameHello, Token: "abc"}, false},
		{"Hello without token", InboundFrame{Type: FrameHello}, true},
		{"Send into existing conversation", InboundFrame{Type: FrameSendMessage, ConversationID: "alice|bob", Text: "hi"}, false},
		{"Send to a peer for lazy creation", InboundFrame{Type: FrameSendMessage, To: "bob", Text: "hi"}, false},
		{"Send with neither target", InboundFrame{Type: FrameSendMessage, Text: "hi"}, true},
		{"Mark seen without conversation", InboundFrame{Type: FrameMarkSeen}, true},
		{"Typing with conversation", InboundFrame{Type: FrameTyping, ConversationID: "alice|bob"}, false},
		{"Unknown type", InboundFrame{Type: "shout"}, true},
		{"Missing type", InboundFrame{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestEncodeEventFrameTypes(t *testing.T) {
	req := require.New(t)

	conv := domain.NewConversation("alice", "bob")
	frame := encodeEvent(event.NewMessage{Conversation: conv, Message: domain.Message{Seq: 1}})
	nm, ok := frame.(newMessageFrame)
	req.True(ok)
	req.Equal("new_message", nm.Type)

	frame = encodeEvent(event.UserOffline{UserID: "bob"})
	off, ok := frame.(presenceFrame)
	req.True(ok)
	req.Equal("user_offline", off.Type)
	req.Equal("bob", off.UserID)
}
