package monitor

import (
	"sync"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// DashboardData provides a real-time view of a suite run.
type DashboardData struct {
	mu        sync.RWMutex
	runID     string
	startTime time.Time
	status    string
	scenarios map[scenario.ID]ScenarioState
	summary   DashboardSummary
}

// Snapshot is a point-in-time copy of DashboardData, safe to
// encode.
type Snapshot struct {
	RunID     string                        `json:"run_id"`
	StartTime time.Time                     `json:"start_time"`
	Status    string                        `json:"status"` // running, completed, failed
	Scenarios map[scenario.ID]ScenarioState `json:"scenarios"`
	Summary   DashboardSummary              `json:"summary"`
}

// ScenarioState represents the current state of a scenario.
type ScenarioState struct {
	ID          scenario.ID   `json:"id"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Status      string        `json:"status"`
	WorkerIndex int           `json:"worker_index"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Message     string        `json:"message,omitempty"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Running  int     `json:"running"`
	Pending  int     `json:"pending"`
	PassRate float64 `json:"pass_rate"`
	Elapsed  string  `json:"elapsed"`
}

// NewDashboardData creates a new dashboard data instance.
func NewDashboardData(runID string) *DashboardData {
	return &DashboardData{
		runID:     runID,
		startTime: time.Now(),
		status:    "running",
		scenarios: make(map[scenario.ID]ScenarioState),
	}
}

// UpdateFromEvent updates dashboard state from a scenario event.
// Log events carry no scenario and are ignored.
func (d *DashboardData) UpdateFromEvent(event ScenarioEvent) {
	if event.Type == EventLog || event.ScenarioID == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	state, exists := d.scenarios[event.ScenarioID]
	if !exists {
		state = ScenarioState{
			ID:   event.ScenarioID,
			Name: event.Name,
		}
	}
	if event.Category != "" {
		state.Category = event.Category
	}
	state.WorkerIndex = event.WorkerIndex

	switch event.Type {
	case EventStarted:
		state.Status = scenario.StatusRunning
		state.StartTime = &now
	case EventCompleted:
		state.Status = scenario.StatusPassed
		state.EndTime = &now
		state.Duration = event.Duration
	case EventSkipped:
		state.Status = scenario.StatusSkipped
		state.Message = event.Message
	default:
		state.Status = event.Status
		if state.Status == "" {
			state.Status = string(event.Type)
		}
		state.EndTime = &now
		state.Duration = event.Duration
		state.Message = event.Message
	}

	d.scenarios[event.ScenarioID] = state
	d.recalcSummary()
}

// failedStatus reports whether a status counts against the pass
// rate.
func failedStatus(s string) bool {
	switch s {
	case scenario.StatusFailed, scenario.StatusTimedOut,
		scenario.StatusStuck, scenario.StatusError:
		return true
	}
	return false
}

func (d *DashboardData) recalcSummary() {
	s := DashboardSummary{}
	for _, st := range d.scenarios {
		s.Total++
		switch {
		case st.Status == scenario.StatusPassed:
			s.Passed++
		case failedStatus(st.Status):
			s.Failed++
		case st.Status == scenario.StatusSkipped:
			s.Skipped++
		case st.Status == scenario.StatusRunning:
			s.Running++
		default:
			s.Pending++
		}
	}
	if completed := s.Passed + s.Failed; completed > 0 {
		s.PassRate = float64(s.Passed) / float64(completed) * 100
	}
	s.Elapsed = time.Since(d.startTime).Round(time.Millisecond).String()
	d.summary = s
}

// Snapshot returns a copy of the current dashboard state.
func (d *DashboardData) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := Snapshot{
		RunID:     d.runID,
		StartTime: d.startTime,
		Status:    d.status,
		Scenarios: make(map[scenario.ID]ScenarioState, len(d.scenarios)),
		Summary:   d.summary,
	}
	for k, v := range d.scenarios {
		snap.Scenarios[k] = v
	}
	return snap
}

// SetStatus sets the overall run status.
func (d *DashboardData) SetStatus(status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

// BuildDashboardData creates a DashboardData from an
// EventCollector by replaying all collected events.
func BuildDashboardData(
	runID string,
	collector *EventCollector,
) *DashboardData {
	data := NewDashboardData(runID)
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
