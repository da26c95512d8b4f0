package transport

import "encoding/json"

// Frame is the wire envelope for every websocket exchange.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Frame types understood by the client. The server owns the payload schemas;
// the client decodes only the identifiers it needs for cache targeting.
const (
	FrameMessage = "chat.message" // server push: new message in a session
	FrameRead    = "chat.read"    // server push: read receipt
	FrameSend    = "chat.send"    // client: send a message
	FrameAck     = "chat.ack"     // server: acknowledgement of a send
	FrameError   = "chat.error"   // server: rejected frame
)

// Message carries the identifiers and body of a pushed chat message. Extra
// server fields are ignored.
type Message struct {
	ID             string `json:"message_id"`
	VisitID        string `json:"visit_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Sender         string `json:"sender,omitempty"`
	Body           string `json:"body,omitempty"`
	SentAt         string `json:"sent_at,omitempty"`
}

// SendPayload is the client half of FrameSend. ClientMessageID makes resends
// after a reconnect idempotent on the server.
type SendPayload struct {
	ClientMessageID string `json:"client_message_id"`
	VisitID         string `json:"visit_id,omitempty"`
	ConversationID  string `json:"conversation_id,omitempty"`
	Body            string `json:"body"`
}

// Event is what subscribers receive from the transport broker. The
// pubsub event type says what happened; Message is set for domain pushes
// and Err for connect errors.
type Event struct {
	Message Message
	Err     error
}
