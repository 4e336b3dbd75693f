package statemanager_test

import (
	"log/slog"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/Bhogyaan/NRBLOG/pkg/state"
	"github.com/Bhogyaan/NRBLOG/pkg/state/statemanager"
	"github.com/google/uuid"
)

// --- Test Suite Setup ---

func newTestLogger() *slog.Logger {
	// Discard logger output during tests by setting a high level
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func newTestManager() *statemanager.InMemoryManager {
	return statemanager.NewInMemoryManager(newTestLogger())
}

type nopSink struct{}

func (nopSink) Send([]byte) {}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// --- Registry Tests ---

func TestRegisterAndResolve(t *testing.T) {
	m := newTestManager()
	userID := "user-1"
	connID := uuid.New()
	sink := nopSink{}

	online := m.Register(userID, connID, sink)
	if !contains(online, userID) {
		t.Errorf("Expected online snapshot to contain %s, got %v", userID, online)
	}

	resolved, found := m.Resolve(userID)
	if !found {
		t.Fatal("Resolve failed to find registered user")
	}
	if resolved == nil {
		t.Error("Resolve returned a nil sink")
	}

	if _, found := m.Resolve("user-unknown"); found {
		t.Error("Resolved a user that was never registered")
	}
}

func TestLastWriterWinsSlot(t *testing.T) {
	m := newTestManager()
	userID := "user-multi"
	connA, connB := uuid.New(), uuid.New()
	sinkA, sinkB := &captureSink{}, &captureSink{}

	m.Register(userID, connA, sinkA)
	m.Register(userID, connB, sinkB)

	resolved, found := m.Resolve(userID)
	if !found {
		t.Fatal("Resolve failed after second register")
	}
	if resolved != state.Sink(sinkB) {
		t.Error("Expected the newer connection's sink to win the user slot")
	}
}

// A's socket lingers and fires disconnect after the user reconnected as B.
// The stale unregister must not evict B.
func TestStaleUnregisterIsNoOp(t *testing.T) {
	m := newTestManager()
	userID := "user-reconnect"
	connA, connB := uuid.New(), uuid.New()
	sinkB := &captureSink{}

	m.Register(userID, connA, &captureSink{})
	m.Register(userID, connB, sinkB)

	changed, online := m.Unregister(connA)
	if changed {
		t.Error("Stale unregister reported a presence change")
	}
	if !contains(online, userID) {
		t.Errorf("User disappeared from presence after stale unregister: %v", online)
	}

	resolved, found := m.Resolve(userID)
	if !found {
		t.Fatal("User unresolvable after stale unregister")
	}
	if resolved != state.Sink(sinkB) {
		t.Error("Stale unregister evicted the newer connection")
	}
}

func TestUnregisterRemovesExactlyOwnEntry(t *testing.T) {
	m := newTestManager()
	m.Register("user-a", uuid.New(), nopSink{})
	connB := uuid.New()
	m.Register("user-b", connB, nopSink{})

	changed, online := m.Unregister(connB)
	if !changed {
		t.Error("Expected unregister of current connection to change presence")
	}
	if contains(online, "user-b") {
		t.Error("user-b still present after unregister")
	}
	if !contains(online, "user-a") {
		t.Error("user-a evicted by user-b's unregister")
	}
}

// --- Room Tests ---

func TestRoomJoinBroadcastLeave(t *testing.T) {
	m := newTestManager()
	room := state.PostRoom("abc123")
	conn1, conn2 := uuid.New(), uuid.New()
	m.Register("user-room-1", conn1, nopSink{})
	m.Register("user-room-2", conn2, nopSink{})

	m.JoinRoom(conn1, room)
	m.JoinRoom(conn2, room)
	if got := len(m.RoomSinks(room)); got != 2 {
		t.Fatalf("Expected 2 sinks in room, got %d", got)
	}

	m.LeaveRoom(conn1, room)
	if got := len(m.RoomSinks(room)); got != 1 {
		t.Fatalf("Expected 1 sink after leave, got %d", got)
	}

	// empty room cleanup
	m.LeaveRoom(conn2, room)
	if got := m.RoomSinks(room); got != nil {
		t.Errorf("Expected no sinks for disposed room, got %d", len(got))
	}
}

func TestMalformedRoomNamesIgnored(t *testing.T) {
	m := newTestManager()
	connID := uuid.New()
	m.Register("user-rooms", connID, nopSink{})

	for _, name := range []string{"not-a-post-room", "post:", "post:a/b", "POST:abc", "admin"} {
		m.JoinRoom(connID, name)
		if sinks := m.RoomSinks(name); len(sinks) != 0 {
			t.Errorf("Join to malformed room %q was not ignored", name)
		}
	}
}

func TestUnregisterLeavesRooms(t *testing.T) {
	m := newTestManager()
	room := state.PostRoom("deadbeef")
	connID := uuid.New()
	m.Register("user-gone", connID, nopSink{})
	m.JoinRoom(connID, room)

	m.Unregister(connID)
	if sinks := m.RoomSinks(room); len(sinks) != 0 {
		t.Error("Room still holds a sink for an unregistered connection")
	}
}

// --- Typing Tests ---

func TestTypingSetAndClear(t *testing.T) {
	m := newTestManager()
	convo, user := "convo-1", "user-typing"

	m.SetTyping(convo, user)
	if !m.IsTyping(convo, user) {
		t.Fatal("SetTyping did not record the entry")
	}

	m.ClearTyping(convo, user)
	if m.IsTyping(convo, user) {
		t.Error("Residual typing entry after ClearTyping")
	}
}

// There is no expiry on typing entries: a disconnect without stopTyping
// leaves the entry behind.
func TestTypingSurvivesDisconnect(t *testing.T) {
	m := newTestManager()
	convo, user := "convo-2", "user-stale"
	connID := uuid.New()
	m.Register(user, connID, nopSink{})

	m.SetTyping(convo, user)
	m.Unregister(connID)

	if !m.IsTyping(convo, user) {
		t.Error("Typing entry was expired by disconnect; expected it to persist")
	}
}

// --- Concurrency smoke test ---

func TestConcurrentRegistryAccess(t *testing.T) {
	m := newTestManager()
	numGoroutines := 100
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := "user" + strconv.Itoa(i%10)
			connID := uuid.New()
			m.Register(userID, connID, nopSink{})
			m.JoinRoom(connID, state.PostRoom("abc"+strconv.Itoa(i%5)))
			m.Resolve(userID)
			m.Unregister(connID)
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.OnlineUsers()
			m.RoomSinks(state.PostRoom("abc" + strconv.Itoa(i%5)))
			m.AllSinks()
		}(i)
	}

	wg.Wait()
}

type captureSink struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *captureSink) Send(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, payload)
}
