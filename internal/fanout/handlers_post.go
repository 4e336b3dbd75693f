package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Bhogyaan/NRBLOG/internal/store"
	"github.com/Bhogyaan/NRBLOG/pkg/state"
)

// Room subscription signals are fire-and-forget: no acknowledgment, and the
// state manager silently drops names that are not post rooms.

func (e *Engine) handleJoinPostRoom(origin *state.Connection, payload json.RawMessage) error {
	var room string
	if err := json.Unmarshal(payload, &room); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	e.state.JoinRoom(origin.ID, room)
	return nil
}

func (e *Engine) handleLeavePostRoom(origin *state.Connection, payload json.RawMessage) error {
	var room string
	if err := json.Unmarshal(payload, &room); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	e.state.LeaveRoom(origin.ID, room)
	return nil
}

// handleSyncPostState returns the current full post to the requester. Clients
// call it when they suspect they missed a broadcast.
func (e *Engine) handleSyncPostState(ctx context.Context, origin *state.Connection, payload json.RawMessage) error {
	var p syncPostStatePayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	post, err := e.store.Post(ctx, p.PostID)
	if err != nil {
		return err
	}
	e.emit(origin.Sink, EventSyncPostState, post)
	return nil
}

// handleNewPost fans a just-created post out to the author's followers, one
// unicast each, plus a feed notification to every connection. Followers
// without a live connection are skipped.
func (e *Engine) handleNewPost(ctx context.Context, payload json.RawMessage) error {
	var p newPostPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}

	post, err := e.store.Post(ctx, p.ID)
	if err != nil {
		return err
	}
	followers, err := e.store.Followers(ctx, post.Author.ID)
	if err != nil {
		return err
	}

	for _, follower := range followers {
		e.emitToUser(follower, EventNewPost, post)
	}
	e.emitToAll(EventNewFeedPost, feedView(post))

	e.logger.Info("Fanned out new post",
		slog.String("postID", post.ID),
		slog.Int("followers", len(followers)),
	)
	return nil
}

// feedView trims a post down to the card the global feed notification needs.
func feedView(post *store.Post) *store.Post {
	view := *post
	view.Comments = nil
	return &view
}

// broadcastPost re-fetches the post and broadcasts it to its room. This is
// the common path for every post-scoped mutation: the payload delivered to
// subscribers is always the state visible at this re-fetch, regardless of
// what the triggering client claimed.
func (e *Engine) broadcastPost(ctx context.Context, postID, eventName string) error {
	post, err := e.store.Post(ctx, postID)
	if err != nil {
		return err
	}
	e.emitToRoom(state.PostRoom(postID), eventName, post)
	return nil
}

func (e *Engine) handleNewComment(ctx context.Context, payload json.RawMessage) error {
	var p newCommentPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	return e.broadcastPost(ctx, p.PostID, EventNewComment)
}

func (e *Engine) handleLikeUnlikePost(ctx context.Context, payload json.RawMessage) error {
	var p likeUnlikePostPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	return e.broadcastPost(ctx, p.PostID, EventLikeUnlikePost)
}

func (e *Engine) handleLikeUnlikeComment(ctx context.Context, payload json.RawMessage) error {
	var p likeUnlikeCommentPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	return e.broadcastPost(ctx, p.PostID, EventLikeUnlikeComment)
}

func (e *Engine) handleEditComment(ctx context.Context, payload json.RawMessage) error {
	var p editCommentPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	// If the comment lost a race with deleteComment, the re-fetched post
	// simply no longer contains it and subscribers see the winner's state.
	return e.broadcastPost(ctx, p.PostID, EventEditComment)
}

func (e *Engine) handleDeleteComment(ctx context.Context, payload json.RawMessage) error {
	var p deleteCommentPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	return e.broadcastPost(ctx, p.PostID, EventDeleteComment)
}

// handlePostDeleted announces a deletion. There is no surviving document to
// enrich, so the broadcasts carry identifiers only.
func (e *Engine) handlePostDeleted(payload json.RawMessage) error {
	var p postDeletedPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	e.announcePostDeleted(p.PostID)
	return nil
}

func (e *Engine) announcePostDeleted(postID string) {
	ref := map[string]string{"postId": postID}
	e.emitToRoom(state.PostRoom(postID), EventPostDeleted, ref)
	e.emitToAll(EventPostDeletedFromFeed, ref)
}

// --- moderation entry points, called from the admin HTTP handlers ---

// PostDeleted is the HTTP-triggered twin of the postDeleted socket event.
func (e *Engine) PostDeleted(postID string) {
	e.announcePostDeleted(postID)
}

func (e *Engine) PostBanned(ctx context.Context, postID string) error {
	return e.broadcastPost(ctx, postID, EventPostBanned)
}

func (e *Engine) PostUnbanned(ctx context.Context, postID string) error {
	return e.broadcastPost(ctx, postID, EventPostUnbanned)
}
