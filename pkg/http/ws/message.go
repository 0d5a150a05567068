package ws

import (
	"encoding/json"
	"time"
)

// MessageType constants for the job stream protocol.
const (
	// Client -> Server
	TypeSubscribeJob   = "subscribe_job"
	TypeUnsubscribeJob = "unsubscribe_job"
	TypePing           = "ping"

	// Server -> Client
	TypeSubscribed = "subscribed"
	TypeJobUpdate  = "job_update"
	TypeError      = "error"
	TypePong       = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

type SubscribeJobPayload struct {
	JobID string `json:"job_id"`
}

type JobUpdatePayload struct {
	JobID         string    `json:"job_id"`
	Status        string    `json:"status"`
	SourceTier    string    `json:"source_tier,omitempty"`
	QuestionCount int       `json:"question_count,omitempty"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
