package fanout

import "encoding/json"

// ClientEvent is the wire envelope for client-originated events.
type ClientEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// ServerEvent is the wire envelope for everything the gateway emits. The
// timestamp is wall-clock milliseconds at capture; clients use it for
// ordering and deduplication.
type ServerEvent struct {
	Event     string `json:"event"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Client-originated event names.
const (
	EventJoinPostRoom       = "joinPostRoom"
	EventLeavePostRoom      = "leavePostRoom"
	EventPing               = "ping"
	EventSyncPostState      = "syncPostState"
	EventNewPost            = "newPost"
	EventNewComment         = "newComment"
	EventLikeUnlikePost     = "likeUnlikePost"
	EventLikeUnlikeComment  = "likeUnlikeComment"
	EventEditComment        = "editComment"
	EventDeleteComment      = "deleteComment"
	EventPostDeleted        = "postDeleted"
	EventNewMessage         = "newMessage"
	EventMessageDelivered   = "messageDelivered"
	EventMarkMessagesAsSeen = "markMessagesAsSeen"
	EventTyping             = "typing"
	EventStopTyping         = "stopTyping"
)

// Server-only event names.
const (
	EventPong                = "pong"
	EventError               = "error"
	EventGetOnlineUsers      = "getOnlineUsers"
	EventNewFeedPost         = "newFeedPost"
	EventPostDeletedFromFeed = "postDeletedFromFeed"
	EventMessagesSeen        = "messagesSeen"
	EventPostBanned          = "postBanned"
	EventPostUnbanned        = "postUnbanned"
)
