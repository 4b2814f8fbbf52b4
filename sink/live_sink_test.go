package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"threadly/domain"
	"threadly/domain/event"
	"threadly/errors"
)

func newMessageEvent(text string) event.NewMessage {
	return event.NewMessage{
		Message: domain.Message{Text: text},
	}
}

func TestLiveSink_Prefers_Critical_Lane(t *testing.T) {
	req := require.New(t)
	s := NewLiveSink(slog.Default(), 8)
	defer s.Close()

	// Given a casual event enqueued before a critical one
	req.NoError(s.Consume(context.Background(), event.UserOnline{UserID: "alice"}))
	req.NoError(s.Consume(context.Background(), newMessageEvent("hi")))

	// Then the critical event comes out first
	e, err := s.Next(context.Background())
	req.NoError(err)
	req.Equal(event.KindNewMessage, e.EventKind())

	e, err = s.Next(context.Background())
	req.NoError(err)
	req.Equal(event.KindUserOnline, e.EventKind())
}

func TestLiveSink_Drops_Casual_Events_Under_Pressure(t *testing.T) {
	req := require.New(t)
	s := NewLiveSink(slog.Default(), 1)
	defer s.Close()

	req.NoError(s.Consume(context.Background(), event.UserOnline{UserID: "alice"}))
	req.NoError(s.Consume(context.Background(), event.UserOnline{UserID: "bob"}))

	// The second casual event is dropped, the lane keeps the first
	req.Equal(int64(1), s.Dropped())

	e, err := s.Next(context.Background())
	req.NoError(err)
	req.Equal(event.UserOnline{UserID: "alice"}, e)
}

func TestLiveSink_Evicts_Oldest_Critical_When_Full(t *testing.T) {
	req := require.New(t)
	s := NewLiveSink(slog.Default(), 1)
	defer s.Close()

	req.NoError(s.Consume(context.Background(), newMessageEvent("first")))
	req.NoError(s.Consume(context.Background(), newMessageEvent("second")))

	// The oldest critical event was evicted in favor of the newest
	e, err := s.Next(context.Background())
	req.NoError(err)
	req.Equal("second", e.(event.NewMessage).Message.Text)
	req.Equal(int64(1), s.Dropped())
}

func TestLiveSink_Consume_Never_Blocks(t *testing.T) {
	req := require.New(t)
	s := NewLiveSink(slog.Default(), 1)
	defer s.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			_ = s.Consume(context.Background(), newMessageEvent("flood"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("Consume must not block on a full sink")
	}
}

func TestLiveSink_Closed_Sink_Discards_Silently(t *testing.T) {
	req := require.New(t)
	s := NewLiveSink(slog.Default(), 8)

	s.Close()
	s.Close() // closing twice is safe

	req.NoError(s.Consume(context.Background(), newMessageEvent("late")))

	_, err := s.Next(context.Background())
	req.ErrorIs(err, errors.ErrSinkClosed)
}
