package fanout

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var objectIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// newValidator builds the payload validator with the objectid rule (the
// 24-character hexadecimal identity shape used throughout the store).
func newValidator() *validator.Validate {
	v := validator.New()
	// registration only fails for an empty tag name
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return objectIDPattern.MatchString(fl.Field().String())
	})
	return v
}

var errBadPayload = errors.New("invalid event payload")

// decode unmarshals and validates a client payload. Any failure collapses to
// errBadPayload; the client gets a generic error event, not a field report.
func (e *Engine) decode(raw json.RawMessage, into any) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if err := e.validate.Struct(into); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

type syncPostStatePayload struct {
	PostID string `json:"postId" validate:"required,objectid"`
}

type newPostPayload struct {
	ID       string `json:"_id" validate:"required,objectid"`
	PostedBy string `json:"postedBy" validate:"required,objectid"`
}

type newCommentPayload struct {
	PostID  string `json:"postId" validate:"required,objectid"`
	Comment struct {
		ID string `json:"_id" validate:"required,objectid"`
	} `json:"comment"`
}

type likeUnlikePostPayload struct {
	PostID string `json:"postId" validate:"required,objectid"`
	UserID string `json:"userId" validate:"required,objectid"`
	// The client also sends its view of the like set; it is deliberately
	// not decoded. The broadcast uses the store's like set only.
}

type likeUnlikeCommentPayload struct {
	PostID    string `json:"postId" validate:"required,objectid"`
	CommentID string `json:"commentId" validate:"required,objectid"`
	UserID    string `json:"userId" validate:"required,objectid"`
}

type editCommentPayload struct {
	PostID    string `json:"postId" validate:"required,objectid"`
	CommentID string `json:"commentId" validate:"required,objectid"`
}

type deleteCommentPayload struct {
	PostID    string `json:"postId" validate:"required,objectid"`
	CommentID string `json:"commentId" validate:"required,objectid"`
}

type postDeletedPayload struct {
	PostID string `json:"postId" validate:"required,objectid"`
	UserID string `json:"userId" validate:"required,objectid"`
}

type newMessagePayload struct {
	ID string `json:"_id" validate:"required,objectid"`
}

type messageDeliveredPayload struct {
	MessageID      string `json:"messageId" validate:"required,objectid"`
	ConversationID string `json:"conversationId" validate:"required,objectid"`
	RecipientID    string `json:"recipientId" validate:"required,objectid"`
}

type conversationUserPayload struct {
	ConversationID string `json:"conversationId" validate:"required,objectid"`
	UserID         string `json:"userId" validate:"required,objectid"`
}
