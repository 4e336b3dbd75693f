package state

import (
	"github.com/google/uuid"
)

type Manager interface {
	// --- Registry (user -> most recent connection) ---
	// Register binds a user to their newest connection. The slot is
	// last-writer-wins: a second device overwrites the first for unicast
	// addressing. Returns the online user-id snapshot for the presence
	// broadcast that must follow.
	Register(userID string, connID uuid.UUID, sink Sink) (online []string)

	// Unregister removes a departing connection. The user slot is only
	// cleared if it still points at this connection, so a stale disconnect
	// arriving after a reconnect never evicts the newer entry. Room
	// membership for the connection is always removed. changed reports
	// whether the registry (and therefore presence) actually changed.
	Unregister(connID uuid.UUID) (changed bool, online []string)

	// Resolve returns the deliverable sink for a user, if any. Absence is
	// not an error; callers skip delivery.
	Resolve(userID string) (Sink, bool)

	// Connection looks up a live connection by id.
	Connection(connID uuid.UUID) (*Connection, bool)

	OnlineUsers() []string

	// --- Rooms ---
	// JoinRoom and LeaveRoom are fire-and-forget; names that are not of the
	// form "post:<id>" are ignored.
	JoinRoom(connID uuid.UUID, room string)
	LeaveRoom(connID uuid.UUID, room string)
	RoomSinks(room string) []Sink

	// AllSinks returns every live connection, for feed and presence
	// broadcasts.
	AllSinks() []Sink

	// --- Typing indicators ---
	// Keyed by (conversationId, userId). Entries have no expiry; a client
	// that disconnects without sending stopTyping leaves its entry behind.
	SetTyping(conversationID, userID string)
	ClearTyping(conversationID, userID string)
	IsTyping(conversationID, userID string) bool
}
