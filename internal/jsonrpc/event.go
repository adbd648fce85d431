package jsonrpc

import (
	"time"
)

// NewEvent wraps a typed event into the conventional "event" notification
// envelope:
//
//	{ method: "event", params: { type, data, source?, timestamp } }
//
// The timestamp is UTC RFC3339Nano, sortable across events.
func NewEvent(eventType string, data any, source string) *Notification {
	params := map[string]any{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if source != "" {
		params["source"] = source
	}
	return NewNotification(EventMethod, params)
}
