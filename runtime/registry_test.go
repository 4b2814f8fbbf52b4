package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"threadly/domain/event"
)

type fakeSink struct {
	id int64
}

func (s fakeSink) ID() int64                                       { return s.id }
func (s fakeSink) Consume(_ context.Context, _ event.DomainEvent) error { return nil }
func (s fakeSink) Close()                                          {}

func TestRegistry_Register_First_Connection_Goes_Online(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	// Given an empty registry
	req.False(registry.IsOnline(userID))

	// When the first connection registers
	wentOnline := registry.Register(userID, fakeSink{id: 1})

	// Then the user went online exactly once
	req.True(wentOnline)
	req.True(registry.IsOnline(userID))
	req.Len(registry.ConnectionsOf(userID), 1)

	// And a second tab does not re-emit "went online"
	wentOnline = registry.Register(userID, fakeSink{id: 2})
	req.False(wentOnline)
	req.Len(registry.ConnectionsOf(userID), 2)
}

func TestRegistry_Register_Is_Idempotent_Per_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	registry.Register(userID, fakeSink{id: 7})
	registry.Register(userID, fakeSink{id: 7})

	req.Len(registry.ConnectionsOf(userID), 1)
}

func TestRegistry_Unregister_Last_Connection_Goes_Offline(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	// Given a user with two tabs
	registry.Register(userID, fakeSink{id: 1})
	registry.Register(userID, fakeSink{id: 2})

	// When the first tab closes
	wentOffline := registry.Unregister(userID, 1)

	// Then the user is still online
	req.False(wentOffline)
	req.True(registry.IsOnline(userID))

	// When the last tab closes
	wentOffline = registry.Unregister(userID, 2)

	// Then the user went offline exactly once
	req.True(wentOffline)
	req.False(registry.IsOnline(userID))
	req.Nil(registry.ConnectionsOf(userID))
	req.Zero(registry.CountUsers())
}

func TestRegistry_Unregister_Unknown_User_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.False(registry.Unregister(uuid.NewString(), 42))
}

func TestRegistry_Connections_Returns_All_Users(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("alice", fakeSink{id: 1})
	registry.Register("bob", fakeSink{id: 2})
	registry.Register("bob", fakeSink{id: 3})

	req.Len(registry.Connections(), 3)
	req.Equal(2, registry.CountUsers())
	req.Equal(3, registry.CountConnections())
}

func TestRegistry_Concurrent_Register_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			userID := uuid.NewString()
			registry.Register(userID, fakeSink{id: n})
			registry.Register(userID, fakeSink{id: n + users})
			registry.Unregister(userID, n)
			registry.Unregister(userID, n+users)
		}(int64(i))
	}
	wg.Wait()

	// Every goroutine removed what it added
	req.Zero(registry.CountUsers())
	req.Zero(registry.CountConnections())
}
