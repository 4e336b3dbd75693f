package fanout

import (
	"context"
	"encoding/json"
)

// Direct-message events are never room broadcasts; targets are resolved one
// user at a time through the registry, and an offline party is skipped.

func (e *Engine) handleNewMessage(ctx context.Context, payload json.RawMessage) error {
	var p newMessagePayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	msg, err := e.store.Message(ctx, p.ID)
	if err != nil {
		return err
	}
	e.emitToUser(msg.RecipientID, EventNewMessage, msg)
	return nil
}

func (e *Engine) handleMessageDelivered(ctx context.Context, payload json.RawMessage) error {
	var p messageDeliveredPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}
	msg, err := e.store.Message(ctx, p.MessageID)
	if err != nil {
		return err
	}
	// The sender is the one waiting on the delivery receipt.
	e.emitToUser(msg.SenderID, EventMessageDelivered, msg)
	return nil
}

type messagesSeenPayload struct {
	ConversationID string `json:"conversationId"`
	SeenMessages   any    `json:"seenMessages"`
}

func (e *Engine) handleMarkMessagesAsSeen(ctx context.Context, payload json.RawMessage) error {
	var p conversationUserPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}

	convo, err := e.store.Conversation(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	seen, err := e.store.SeenMessages(ctx, p.ConversationID, p.UserID)
	if err != nil {
		return err
	}

	counterpart, ok := convo.Counterpart(p.UserID)
	if !ok {
		return nil // solo conversation, nobody to notify
	}
	e.emitToUser(counterpart, EventMessagesSeen, messagesSeenPayload{
		ConversationID: p.ConversationID,
		SeenMessages:   seen,
	})
	return nil
}

// handleTyping records or clears the typing indicator and notifies the other
// party of the conversation. Entries have no expiry: the indicator clears
// only when the client says so.
func (e *Engine) handleTyping(ctx context.Context, payload json.RawMessage, active bool) error {
	var p conversationUserPayload
	if err := e.decode(payload, &p); err != nil {
		return err
	}

	eventName := EventStopTyping
	if active {
		e.state.SetTyping(p.ConversationID, p.UserID)
		eventName = EventTyping
	} else {
		e.state.ClearTyping(p.ConversationID, p.UserID)
	}

	convo, err := e.store.Conversation(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	counterpart, ok := convo.Counterpart(p.UserID)
	if !ok {
		return nil
	}
	e.emitToUser(counterpart, eventName, p)
	return nil
}
