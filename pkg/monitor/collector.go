package monitor

import (
	"sync"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// EventCollector captures scenario events and timing data.
type EventCollector struct {
	mu       sync.RWMutex
	events   []ScenarioEvent
	handlers []func(ScenarioEvent)
	stats    CollectorStats
}

// CollectorStats holds aggregate statistics. Total counts
// finished scenarios only.
type CollectorStats struct {
	Started   int           `json:"started"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	TimedOut  int           `json:"timed_out"`
	Stuck     int           `json:"stuck"`
	Errored   int           `json:"errored"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]ScenarioEvent, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
	}
}

// OnEvent registers a handler to be called for each event.
func (c *EventCollector) OnEvent(handler func(ScenarioEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event ScenarioEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	switch event.Type {
	case EventStarted:
		c.stats.Started++
	case EventCompleted:
		c.stats.Total++
		c.stats.Passed++
	case EventFailed:
		c.stats.Total++
		c.stats.Failed++
	case EventSkipped:
		c.stats.Total++
		c.stats.Skipped++
	case EventTimedOut:
		c.stats.Total++
		c.stats.TimedOut++
	case EventStuck:
		c.stats.Total++
		c.stats.Stuck++
	case EventError:
		c.stats.Total++
		c.stats.Errored++
	}
	c.stats.Duration = time.Since(c.stats.StartTime)
	handlers := make([]func(ScenarioEvent), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// EmitStarted emits a scenario started event.
func (c *EventCollector) EmitStarted(id scenario.ID, name string) {
	c.Emit(ScenarioEvent{
		Type:       EventStarted,
		ScenarioID: id,
		Name:       name,
		Status:     scenario.StatusRunning,
	})
}

// EmitResult emits the terminal event matching a result's status.
func (c *EventCollector) EmitResult(r *scenario.Result) {
	if r == nil {
		return
	}
	var metrics map[string]any
	if len(r.Metrics) > 0 {
		metrics = make(map[string]any, len(r.Metrics))
		for k, m := range r.Metrics {
			metrics[k] = m.Value
		}
	}
	c.Emit(ScenarioEvent{
		Type:        eventForStatus(r.Status),
		ScenarioID:  r.ScenarioID,
		Name:        r.ScenarioName,
		Category:    r.Category,
		Status:      r.Status,
		Message:     r.Error,
		WorkerIndex: r.WorkerIndex,
		Duration:    r.Duration,
		Metrics:     metrics,
	})
}

// EmitLog emits a free-form log event, for example readiness
// progress before any scenario starts.
func (c *EventCollector) EmitLog(msg string) {
	c.Emit(ScenarioEvent{Type: EventLog, Message: msg})
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []ScenarioEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]ScenarioEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
}
