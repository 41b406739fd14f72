package websocket

import (
	"encoding/json"
	"time"
)

// Message types sent to clients
const (
	TypeConnection           = "connection"
	TypeSegmentationProgress = "segmentation:progress"
	TypeSegmentationComplete = "segmentation:complete"
	TypeSegmentationError    = "segmentation:error"
)

// Message is the envelope of every frame written to a client
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewMessage stamps a message with the current time
func NewMessage(msgType string, data any, traceID string) Message {
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	}
}

// Encode marshals the message to JSON
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
