package ws

import "encoding/json"

// Server→client event names.
const (
	EventUserStatusChanged = "userStatusChanged"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventMessageReceived   = "messageReceived"
	EventMessageRead       = "messageRead"
	EventMessagesRead      = "messagesRead"
)

// Client→server event names.
const (
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TypingPayload is the inbound payload for typing and stopTyping.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	RecipientID    string `json:"recipientId"`
}

func encodeEvent(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}
