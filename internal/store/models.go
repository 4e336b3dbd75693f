package store

import "time"

// UserRef carries the display fields broadcast alongside a post or comment.
// These are always filled from the store at fanout time, never from a
// client-supplied payload.
type UserRef struct {
	ID         string `bson:"_id" json:"_id"`
	Username   string `bson:"username" json:"username"`
	ProfilePic string `bson:"profilePic" json:"profilePic"`
}

type Comment struct {
	ID        string    `json:"_id"`
	Author    UserRef   `json:"userId"`
	Text      string    `json:"text"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is the fully denormalized document broadcast to post rooms. Likes are
// user-id sets; the store guarantees no duplicate entries per user.
type Post struct {
	ID        string    `json:"_id"`
	Author    UserRef   `json:"postedBy"`
	Text      string    `json:"text"`
	Image     string    `json:"img,omitempty"`
	Likes     []string  `json:"likes"`
	Banned    bool      `json:"isBanned"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Message struct {
	ID             string    `json:"_id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"sender"`
	RecipientID    string    `json:"recipientId"`
	Text           string    `json:"text"`
	Delivered      bool      `json:"delivered"`
	Seen           bool      `json:"seen"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Conversation struct {
	ID           string   `json:"_id"`
	Participants []string `json:"participants"`
}

// Counterpart returns the other participant of a two-party conversation.
func (c *Conversation) Counterpart(userID string) (string, bool) {
	for _, p := range c.Participants {
		if p != userID {
			return p, true
		}
	}
	return "", false
}
