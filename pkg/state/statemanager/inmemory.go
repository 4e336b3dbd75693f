package statemanager

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Bhogyaan/NRBLOG/pkg/state"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// InMemoryManager holds all gateway-local state: the user registry, post
// rooms and typing indicators. It is an injected service with no package
// globals, so every test gets a fresh instance.
type InMemoryManager struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*state.Connection
	users map[string]uuid.UUID // single slot per user, last writer wins
	rooms map[string]*state.Room

	typingMu sync.Mutex
	typing   map[string]map[string]struct{} // conversationID -> set of userIDs

	logger *slog.Logger
}

func NewInMemoryManager(logger *slog.Logger) *InMemoryManager {
	return &InMemoryManager{
		conns:  make(map[uuid.UUID]*state.Connection),
		users:  make(map[string]uuid.UUID),
		rooms:  make(map[string]*state.Room),
		typing: make(map[string]map[string]struct{}),
		logger: logger.With(slog.String("component", "state_manager_inmemory")),
	}
}

// compile-time check to ensure InMemoryManager implements Manager.
var _ state.Manager = (*InMemoryManager)(nil)

// --- Registry ---

func (m *InMemoryManager) Register(userID string, connID uuid.UUID, sink state.Sink) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conns[connID] = &state.Connection{
		ID:        connID,
		UserID:    userID,
		Sink:      sink,
		Rooms:     make(map[string]struct{}),
		CreatedAt: time.Now(),
	}
	m.users[userID] = connID

	m.logger.Debug("Connection registered", slog.String("connID", connID.String()), slog.String("userID", userID))
	return m.onlineLocked()
}

func (m *InMemoryManager) Unregister(connID uuid.UUID) (bool, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		// already gone
		return false, m.onlineLocked()
	}
	delete(m.conns, connID)

	for name := range conn.Rooms {
		m.leaveRoomLocked(conn, name)
	}

	// A reconnect may already have overwritten the slot with a newer
	// connection id; only clear it if it is still ours.
	changed := false
	if current, ok := m.users[conn.UserID]; ok && current == connID {
		delete(m.users, conn.UserID)
		changed = true
	}

	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()), slog.Bool("presenceChanged", changed))
	return changed, m.onlineLocked()
}

func (m *InMemoryManager) Resolve(userID string) (state.Sink, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	connID, ok := m.users[userID]
	if !ok {
		return nil, false
	}
	conn, ok := m.conns[connID]
	if !ok {
		return nil, false
	}
	return conn.Sink, true
}

func (m *InMemoryManager) Connection(connID uuid.UUID) (*state.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[connID]
	return conn, ok
}

func (m *InMemoryManager) OnlineUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onlineLocked()
}

func (m *InMemoryManager) onlineLocked() []string {
	return lo.Keys(m.users)
}

// --- Rooms ---

func (m *InMemoryManager) JoinRoom(connID uuid.UUID, name string) {
	if !state.ValidRoomName(name) {
		m.logger.Warn("Ignoring join to invalid room name", slog.String("room", name))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return
	}

	room, exists := m.rooms[name]
	if !exists {
		room = &state.Room{Name: name, Members: make(map[uuid.UUID]*state.Connection)}
		m.rooms[name] = room
	}
	room.Members[connID] = conn
	conn.Rooms[name] = struct{}{}

	m.logger.Debug("Connection joined room", slog.String("connID", connID.String()), slog.String("room", name))
}

func (m *InMemoryManager) LeaveRoom(connID uuid.UUID, name string) {
	if !state.ValidRoomName(name) {
		m.logger.Warn("Ignoring leave of invalid room name", slog.String("room", name))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return
	}
	m.leaveRoomLocked(conn, name)
}

func (m *InMemoryManager) leaveRoomLocked(conn *state.Connection, name string) {
	delete(conn.Rooms, name)
	room, ok := m.rooms[name]
	if !ok {
		return
	}
	delete(room.Members, conn.ID)
	if len(room.Members) == 0 {
		delete(m.rooms, name)
		m.logger.Debug("Removed empty room", slog.String("room", name))
	}
}

func (m *InMemoryManager) RoomSinks(name string) []state.Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[name]
	if !ok {
		return nil
	}
	sinks := make([]state.Sink, 0, len(room.Members))
	for _, conn := range room.Members {
		sinks = append(sinks, conn.Sink)
	}
	return sinks
}

func (m *InMemoryManager) AllSinks() []state.Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sinks := make([]state.Sink, 0, len(m.conns))
	for _, conn := range m.conns {
		sinks = append(sinks, conn.Sink)
	}
	return sinks
}

// --- Typing indicators ---

func (m *InMemoryManager) SetTyping(conversationID, userID string) {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()

	set, ok := m.typing[conversationID]
	if !ok {
		set = make(map[string]struct{})
		m.typing[conversationID] = set
	}
	set[userID] = struct{}{}
}

func (m *InMemoryManager) ClearTyping(conversationID, userID string) {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()

	set, ok := m.typing[conversationID]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(m.typing, conversationID)
	}
}

func (m *InMemoryManager) IsTyping(conversationID, userID string) bool {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()

	set, ok := m.typing[conversationID]
	if !ok {
		return false
	}
	_, ok = set[userID]
	return ok
}
