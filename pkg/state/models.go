package state

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Sink is the delivery end of a live connection. The transport layer's
// connection satisfies it; tests substitute a capture sink.
type Sink interface {
	Send(payload []byte)
}

// representation of a single transport-layer connection.
type Connection struct {
	ID        uuid.UUID
	UserID    string // authenticated at admission, immutable afterwards
	Sink      Sink
	Rooms     map[string]struct{} // room names this connection has joined
	CreatedAt time.Time
}

// Room is an ephemeral subscription group keyed by "post:<postId>".
// Membership is a set of connections; rooms are created on first join and
// dropped when the last member leaves.
type Room struct {
	Name    string
	Members map[uuid.UUID]*Connection
}

var roomNamePattern = regexp.MustCompile(`^post:[A-Za-z0-9]+$`)

// ValidRoomName reports whether a client-supplied room name is a post room.
// Joins and leaves to anything else are silently ignored.
func ValidRoomName(name string) bool {
	return roomNamePattern.MatchString(name)
}

// PostRoom builds the canonical room name for a post.
func PostRoom(postID string) string {
	return "post:" + postID
}
