package runtime

import (
	"hash/fnv"
	"sync"

	"threadly/contract"
)

// shardCount spreads users across independent locks so register/unregister
// on different users do not contend.
const shardCount = 32

type shard struct {
	mu    sync.RWMutex
	users map[string]map[int64]contract.EventSink
}

// Registry maps a user identifier to the set of currently open live
// connections. A user is present in the map iff they have at least one
// connection; the last unregister removes the entry entirely.
type Registry struct {
	shards [shardCount]*shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{users: make(map[string]map[int64]contract.EventSink)}
	}
	return r
}

func (r *Registry) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return r.shards[h.Sum32()%shardCount]
}

// Register adds a connection under a user. Registering the same connection
// twice is a no-op. It reports whether the user just went online.
func (r *Registry) Register(userID string, sink contract.EventSink) bool {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.users[userID]
	if !ok {
		s.users[userID] = map[int64]contract.EventSink{sink.ID(): sink}
		return true
	}
	conns[sink.ID()] = sink
	return false
}

// Unregister removes a connection. Unknown users or connections are no-ops.
// It reports whether the user just went offline.
func (r *Registry) Unregister(userID string, connID int64) bool {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.users[userID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(s.users, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID string) bool {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0
}

// ConnectionsOf returns the current live connections of a user.
// The result is a snapshot; the registry may change right after.
func (r *Registry) ConnectionsOf(userID string) []contract.EventSink {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns, ok := s.users[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(conns))
	for _, sink := range conns {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Connections returns every live connection across all users. The delivery
// router uses it as the conservative target set for presence broadcasts.
func (r *Registry) Connections() []contract.EventSink {
	var sinks []contract.EventSink
	for _, s := range r.shards {
		s.mu.RLock()
		for _, conns := range s.users {
			for _, sink := range conns {
				sinks = append(sinks, sink)
			}
		}
		s.mu.RUnlock()
	}
	return sinks
}

func (r *Registry) CountUsers() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		total += len(s.users)
		s.mu.RUnlock()
	}
	return total
}

func (r *Registry) CountConnections() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, conns := range s.users {
			total += len(conns)
		}
		s.mu.RUnlock()
	}
	return total
}
