package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Bhogyaan/NRBLOG/internal/store"
	"github.com/Bhogyaan/NRBLOG/pkg/state"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Engine broadcasts mutation events to the connections that should see them.
// For every state-bearing event it re-reads the canonical document from the
// store immediately before delivery; request-supplied denormalized fields are
// never trusted. Each invocation is stateless — ordering across concurrent
// mutations on one post is whatever the store's per-document writes yield,
// and clients treat every broadcast as a snapshot, not a log entry.
type Engine struct {
	logger   *slog.Logger
	state    state.Manager
	store    store.Reader
	validate *validator.Validate

	now func() time.Time
}

func NewEngine(logger *slog.Logger, manager state.Manager, reader store.Reader) *Engine {
	return &Engine{
		logger:   logger.With(slog.String("component", "fanout_engine")),
		state:    manager,
		store:    reader,
		validate: newValidator(),
		now:      time.Now,
	}
}

// HandleMessage is the transport's message callback and the single per-event
// error boundary: whatever a handler returns is converted into an error
// event to the origin connection and goes no further.
func (e *Engine) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	origin, ok := e.state.Connection(connID)
	if !ok {
		e.logger.Warn("Dropping message from unknown connection", slog.String("connID", connID.String()))
		return
	}

	eventName := gjson.GetBytes(msg, "event").String()
	if eventName == "" {
		e.emitError(origin.Sink, errBadPayload)
		return
	}
	payload := json.RawMessage(gjson.GetBytes(msg, "payload").Raw)

	if err := e.dispatch(ctx, origin, eventName, payload); err != nil {
		e.logger.Warn("Event handling failed",
			slog.String("event", eventName),
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		e.emitError(origin.Sink, err)
	}
}

func (e *Engine) dispatch(ctx context.Context, origin *state.Connection, eventName string, payload json.RawMessage) error {
	switch eventName {
	case EventJoinPostRoom:
		return e.handleJoinPostRoom(origin, payload)
	case EventLeavePostRoom:
		return e.handleLeavePostRoom(origin, payload)
	case EventPing:
		e.emit(origin.Sink, EventPong, nil)
		return nil
	case EventSyncPostState:
		return e.handleSyncPostState(ctx, origin, payload)
	case EventNewPost:
		return e.handleNewPost(ctx, payload)
	case EventNewComment:
		return e.handleNewComment(ctx, payload)
	case EventLikeUnlikePost:
		return e.handleLikeUnlikePost(ctx, payload)
	case EventLikeUnlikeComment:
		return e.handleLikeUnlikeComment(ctx, payload)
	case EventEditComment:
		return e.handleEditComment(ctx, payload)
	case EventDeleteComment:
		return e.handleDeleteComment(ctx, payload)
	case EventPostDeleted:
		return e.handlePostDeleted(payload)
	case EventNewMessage:
		return e.handleNewMessage(ctx, payload)
	case EventMessageDelivered:
		return e.handleMessageDelivered(ctx, payload)
	case EventMarkMessagesAsSeen:
		return e.handleMarkMessagesAsSeen(ctx, payload)
	case EventTyping:
		return e.handleTyping(ctx, payload, true)
	case EventStopTyping:
		return e.handleTyping(ctx, payload, false)
	default:
		return errors.New("unknown event: " + eventName)
	}
}

// --- delivery primitives ---

func (e *Engine) marshal(eventName string, payload any) ([]byte, bool) {
	data, err := json.Marshal(ServerEvent{
		Event:     eventName,
		Payload:   payload,
		Timestamp: e.now().UnixMilli(),
	})
	if err != nil {
		e.logger.Error("Failed to marshal server event", slog.String("event", eventName), slog.Any("error", err))
		return nil, false
	}
	return data, true
}

func (e *Engine) emit(sink state.Sink, eventName string, payload any) {
	data, ok := e.marshal(eventName, payload)
	if !ok {
		return
	}
	sink.Send(data)
}

// emitToUser delivers to the user's current connection, if any. An absent
// registry entry is a silent skip, never a failure of the triggering event.
func (e *Engine) emitToUser(userID, eventName string, payload any) {
	sink, ok := e.state.Resolve(userID)
	if !ok {
		e.logger.Debug("No deliverable connection, skipping", slog.String("userID", userID), slog.String("event", eventName))
		return
	}
	e.emit(sink, eventName, payload)
}

func (e *Engine) emitToRoom(room, eventName string, payload any) {
	data, ok := e.marshal(eventName, payload)
	if !ok {
		return
	}
	for _, sink := range e.state.RoomSinks(room) {
		sink.Send(data)
	}
}

func (e *Engine) emitToAll(eventName string, payload any) {
	data, ok := e.marshal(eventName, payload)
	if !ok {
		return
	}
	for _, sink := range e.state.AllSinks() {
		sink.Send(data)
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

// emitError reports a failure to the triggering connection only. The wire
// message stays generic for anything unexpected.
func (e *Engine) emitError(sink state.Sink, err error) {
	msg := "internal error"
	switch {
	case errors.Is(err, store.ErrNotFound):
		msg = "not found"
	case errors.Is(err, errBadPayload):
		msg = "invalid payload"
	case err != nil:
		msg = err.Error()
	}
	e.emit(sink, EventError, errorPayload{Message: msg})
}
