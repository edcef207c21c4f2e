package scenario

import (
	"sync"
	"time"
)

// ProgressUpdate is a heartbeat from a running scenario.
type ProgressUpdate struct {
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// ProgressReporter lets long flows (waiting on WebSocket frames,
// walking several routes) signal that they are still moving. The
// runner cancels a scenario only when no progress arrives within
// its stale threshold.
type ProgressReporter struct {
	ch     chan ProgressUpdate
	mu     sync.Mutex
	last   *ProgressUpdate
	closed bool
}

// NewProgressReporter creates a reporter with a 64-slot buffer.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressUpdate, 64),
	}
}

// ReportProgress emits an update without blocking. When the
// buffer is full the update is dropped; LastUpdate still sees it.
func (p *ProgressReporter) ReportProgress(
	msg string,
	data map[string]any,
) {
	update := ProgressUpdate{
		Timestamp: time.Now(),
		Message:   msg,
		Data:      data,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &update
	if p.closed {
		return
	}

	select {
	case p.ch <- update:
	default:
	}
}

// Channel returns the stream of updates.
func (p *ProgressReporter) Channel() <-chan ProgressUpdate {
	return p.ch
}

// LastUpdate returns the most recent update, or nil.
func (p *ProgressReporter) LastUpdate() *ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Close ends the stream. Safe to call multiple times.
func (p *ProgressReporter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
}
