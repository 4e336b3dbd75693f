package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the referenced entity no longer exists, e.g.
// because it was deleted between the triggering mutation and the re-fetch.
var ErrNotFound = errors.New("entity not found")

// Reader is the gateway's view of the system of record. Every broadcast
// payload is re-read through it immediately before delivery; the gateway
// never writes.
type Reader interface {
	// Post returns the post with author and commenter display fields
	// resolved.
	Post(ctx context.Context, postID string) (*Post, error)

	// Followers returns the ids of users following the given author.
	Followers(ctx context.Context, userID string) ([]string, error)

	Message(ctx context.Context, messageID string) (*Message, error)

	Conversation(ctx context.Context, conversationID string) (*Conversation, error)

	// SeenMessages returns the messages in a conversation addressed to
	// viewerID that are currently marked seen.
	SeenMessages(ctx context.Context, conversationID, viewerID string) ([]Message, error)
}
