package runner

import (
	"sync"

	"digital.vasic.agentprobe/pkg/scenario"
)

// depTracker remembers which scenarios have run in the current
// invocation and where passed ones wrote their results.
type depTracker struct {
	mu     sync.Mutex
	status map[scenario.ID]string
	dirs   map[scenario.ID]string
}

func newDepTracker() *depTracker {
	return &depTracker{
		status: make(map[scenario.ID]string),
		dirs:   make(map[scenario.ID]string),
	}
}

func (d *depTracker) record(r *scenario.Result, dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status[r.ScenarioID] = r.Status
	if r.Status == scenario.StatusPassed {
		d.dirs[r.ScenarioID] = dir
	}
}

func (d *depTracker) ran(id scenario.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.status[id]
	return ok
}

// firstFailed returns the first dependency that ran without
// passing.
func (d *depTracker) firstFailed(deps []scenario.ID) (scenario.ID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dep := range deps {
		if st, ok := d.status[dep]; ok && st != scenario.StatusPassed {
			return dep, true
		}
	}
	return "", false
}

// passedDirs returns a fresh copy of the results directories of
// passed scenarios, safe to hand to a single scenario config.
func (d *depTracker) passedDirs() map[scenario.ID]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[scenario.ID]string, len(d.dirs))
	for k, v := range d.dirs {
		out[k] = v
	}
	return out
}
