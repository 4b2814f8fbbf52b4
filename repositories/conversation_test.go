package repositories

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"threadly/domain"
	"threadly/errors"
)

func newTestRepository(t *testing.T, limit *int) *ConversationRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewConversationRepository(db, slog.Default(), limit)
}

func Test_Append_Creates_Conversation_Lazily(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, nil)
	at := time.Now().UTC()

	// When alice messages bob for the first time
	msg, conv, err := repository.AppendMessage("alice", "", "bob", domain.Body{Text: "hi"}, at)
	req.NoError(err)

	// Then the conversation exists with both participants
	req.Equal(domain.PairKey("alice", "bob"), conv.ID)
	req.True(conv.HasParticipant("alice"))
	req.True(conv.HasParticipant("bob"))
	req.Equal(uint64(1), msg.Seq)
	req.Equal("hi", conv.LastMessage.Text)
	req.False(conv.LastMessage.Seen)

	// And messaging in the other direction reuses the same conversation
	_, conv2, err := repository.AppendMessage("bob", "", "alice", domain.Body{Text: "hello"}, at.Add(time.Second))
	req.NoError(err)
	req.Equal(conv.ID, conv2.ID)
	req.Equal(uint64(2), conv2.LastMessage.Seq)
}

func Test_Append_Rejects_Non_Participant(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, nil)
	at := time.Now().UTC()

	_, conv, err := repository.AppendMessage("alice", "", "bob", domain.Body{Text: "hi"}, at)
	req.NoError(err)

	// An outsider cannot append to the conversation
	_, _, err = repository.AppendMessage("mallory", conv.ID, "", domain.Body{Text: "intrusion"}, at)
	req.ErrorIs(err, errors.ErrNotParticipant)

	// And the rejected message never shows up
	messages, _, err := repository.GetMessages(conv.ID, "alice", nil)
	req.NoError(err)
	req.Len(messages, 1)
}

func Test_Append_Rejects_Unknown_Conversation_And_Self_Pair(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, nil)
	at := time.Now().UTC()

	_, _, err := repository.AppendMessage("alice", "alice|nobody", "", domain.Body{Text: "hi"}, at)
	req.ErrorIs(err, errors.ErrUnknownConversation)

	_, _, err = repository.AppendMessage("alice", "", "alice", domain.Body{Text: "note to self"}, at)
	req.ErrorIs(err, errors.ErrSelfConversation)
}

func Test_Concurrent_Appends_Are_Totally_Ordered(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, nil)

	const perSender = 25
	var wg sync.WaitGroup
	for _, sender := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			peer := "bob"
			if s == "bob" {
				peer = "alice"
			}
			for i := 0; i < perSender; i++ {
				_, _, err := repository.AppendMessage(s, "", peer, domain.Body{Text: "msg"}, time.Now().UTC())
				require.NoError(t, err)
			}
		}(sender)
	}
	wg.Wait()

	messages, _, err := repository.GetMessages(domain.PairKey("alice", "bob"), "alice", nil)
	req.NoError(err)
	req.Len(messages, 2*perSender)

	// Newest first, no duplicate sequence numbers
	seen := make(map[uint64]struct{})
	for i, msg := range messages {
		req.Equal(uint64(2*perSender-i), msg.Seq)
		_, dup := seen[msg.Seq]
		req.False(dup)
		seen[msg.Seq] = struct{}{}
	}
}

func Test_MarkSeen_Targets_Latest_Counterpart_Message(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, nil)
	at := time.Now().UTC()

	_, conv, err := repository.AppendMessage("alice", "", "bob", domain.Body{Text: "first"}, at)
	req.NoError(err)
	_, _, err = repository.AppendMessage("alice", conv.ID, "", domain.Body{Text: "second"}, at.Add(time.Second))
	req.NoError(err)

	// When bob activates the conversation
	msg, err := repository.MarkSeen(conv.ID, "bob")
	req.NoError(err)
	req.NotNil(msg)
	req.Equal("second", msg.Text)
	req.True(msg.Seen)

	// Then the summary flipped as well
	conversations, err := repository.ListConversations("bob")
	req.NoError(err)
	req.Len(conversations, 1)
	req.True(conversations[0].LastMessage.Seen)

	// And marking again yields nothing (idempotent)
	msg, err = repository.MarkSeen(conv.ID, "bob")
	req.NoError(err)
	req.Nil(msg)
}

func Test_MarkSeen_Ignores_Own_Messages(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, nil)
	at := time.Now().UTC()

	_, conv, err := repository.AppendMessage("alice", "", "bob", domain.Body{Text: "hi"}, at)
	req.NoError(err)

	// The sender activating their own conversation marks nothing
	msg, err := repository.MarkSeen(conv.ID, "alice")
	req.NoError(err)
	req.Nil(msg)

	// Unknown viewers are rejected
	_, err = repository.MarkSeen(conv.ID, "mallory")
	req.ErrorIs(err, errors.ErrNotParticipant)
}

func Test_ListConversations_Ordered_By_Recent_Activity(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, nil)
	at := time.Now().UTC()

	_, _, err := repository.AppendMessage("alice", "", "bob", domain.Body{Text: "old"}, at)
	req.NoError(err)
	_, _, err = repository.AppendMessage("alice", "", "clara", domain.Body{Text: "new"}, at.Add(time.Minute))
	req.NoError(err)

	conversations, err := repository.ListConversations("alice")
	req.NoError(err)
	req.Len(conversations, 2)
	req.Equal("new", conversations[0].LastMessage.Text)
	req.Equal("old", conversations[1].LastMessage.Text)

	// Bob only sees his own conversation
	conversations, err = repository.ListConversations("bob")
	req.NoError(err)
	req.Len(conversations, 1)
}

func Test_GetMessages_Cursor_Pagination(t *testing.T) {
	req := require.New(t)
	repository := newTestRepository(t, lo.ToPtr(2))
	at := time.Now().UTC()

	var convID string
	for i := 0; i < 5; i++ {
		_, conv, err := repository.AppendMessage("alice", "", "bob", domain.Body{Text: "msg"}, at.Add(time.Duration(i)*time.Second))
		req.NoError(err)
		convID = conv.ID
	}

	// First page: the two newest messages
	page, cursor, err := repository.GetMessages(convID, "bob", nil)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal(uint64(5), page[0].Seq)
	req.Equal(uint64(4), page[1].Seq)

	// Second page continues right behind the cursor
	page, _, err = repository.GetMessages(convID, "bob", cursor)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal(uint64(3), page[0].Seq)
	req.Equal(uint64(2), page[1].Seq)
}
