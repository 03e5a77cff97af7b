package gateway

import (
	"encoding/json"
	"fmt"
)

// EventError is sent to a session when one of its own frames could not be handled.
const EventError = "error"

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an EventError frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeFrame marshals data under event.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// DecodeFrame parses an inbound frame.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("decode frame: missing event name")
	}
	return f, nil
}

// InboundTopic is the bus topic on which frames of the given event are published.
func InboundTopic(event string) string {
	return "gateway.inbound." + event
}
