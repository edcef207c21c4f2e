package wsprobe

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Event is one JSON frame received from the backend. The backend
// guarantees no schema, so every field is optional. Type, Timestamp,
// Data and Fields are only filled for object frames.
type Event struct {
	// Type is taken from "event_type", falling back to "type".
	Type string `json:"type"`
	// Timestamp is the sender's time when "timestamp" was an
	// RFC 3339 string or a unix number, else zero.
	Timestamp time.Time `json:"timestamp"`
	// Data is the decoded "data" member, if any.
	Data any `json:"data,omitempty"`
	// Fields is the whole decoded object.
	Fields map[string]any `json:"-"`
	// Raw is the frame as received.
	Raw json.RawMessage `json:"raw"`
	// ReceivedAt is the local receive time.
	ReceivedAt time.Time `json:"received_at"`
}

// ParseEvent decodes a frame. ok is false only when the frame is
// not valid JSON.
func ParseEvent(frame []byte) (Event, bool) {
	if !json.Valid(frame) {
		return Event{}, false
	}
	ev := Event{
		Raw:        append(json.RawMessage(nil), frame...),
		ReceivedAt: time.Now(),
	}
	var m map[string]any
	if err := json.Unmarshal(frame, &m); err != nil || m == nil {
		return ev, true
	}
	ev.Data = m["data"]
	ev.Fields = m
	if s, ok := m["event_type"].(string); ok && s != "" {
		ev.Type = s
	} else if s, ok := m["type"].(string); ok {
		ev.Type = s
	}
	ev.Timestamp = parseTimestamp(m["timestamp"])
	return ev, true
}

// parseTimestamp accepts RFC 3339 strings, numeric strings and
// numbers. Numbers above 1e12 are read as milliseconds.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return unixTime(f)
		}
	case float64:
		return unixTime(t)
	}
	return time.Time{}
}

func unixTime(f float64) time.Time {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}
	}
	if f > 1e12 {
		ms := int64(f)
		return time.UnixMilli(ms).UTC()
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// String renders a field of the decoded object for assertions.
func (e Event) String(key string) string {
	v, ok := e.Fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
