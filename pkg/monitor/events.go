// Package monitor collects suite lifecycle events and streams them
// to live viewers over WebSocket.
package monitor

import (
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// EventType represents the type of scenario event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventSkipped   EventType = "skipped"
	EventTimedOut  EventType = "timed_out"
	EventStuck     EventType = "stuck"
	EventError     EventType = "error"
	EventLog       EventType = "log"
)

// eventForStatus maps a final scenario status to its event type.
func eventForStatus(status string) EventType {
	switch status {
	case scenario.StatusPassed:
		return EventCompleted
	case scenario.StatusFailed:
		return EventFailed
	case scenario.StatusSkipped:
		return EventSkipped
	case scenario.StatusTimedOut:
		return EventTimedOut
	case scenario.StatusStuck:
		return EventStuck
	default:
		return EventError
	}
}

// ScenarioEvent represents a lifecycle event during a run.
type ScenarioEvent struct {
	Type        EventType      `json:"type"`
	ScenarioID  scenario.ID    `json:"scenario_id"`
	Name        string         `json:"name"`
	Category    string         `json:"category,omitempty"`
	Status      string         `json:"status,omitempty"`
	Message     string         `json:"message,omitempty"`
	WorkerIndex int            `json:"worker_index"`
	Duration    time.Duration  `json:"duration,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metrics     map[string]any `json:"metrics,omitempty"`
}

// Frame is the wire shape pushed to WebSocket clients: a loose
// {type, timestamp, data} object.
type Frame struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Frame converts the event to its wire shape.
func (e ScenarioEvent) Frame() Frame {
	data := map[string]any{
		"scenario_id":  string(e.ScenarioID),
		"name":         e.Name,
		"worker_index": e.WorkerIndex,
	}
	if e.Category != "" {
		data["category"] = e.Category
	}
	if e.Status != "" {
		data["status"] = e.Status
	}
	if e.Message != "" {
		data["message"] = e.Message
	}
	if e.Duration > 0 {
		data["duration_ms"] = e.Duration.Milliseconds()
	}
	if len(e.Metrics) > 0 {
		data["metrics"] = e.Metrics
	}
	return Frame{
		Type:      string(e.Type),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Data:      data,
	}
}
