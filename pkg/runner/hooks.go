package runner

import (
	"context"
	"fmt"
	"sync"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Waiter blocks until a dependency is available.
// readiness.Gate satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// ReadinessHook returns a pre-hook that waits for the stack to
// be ready before a scenario runs. After the first success the
// hook returns immediately; a failure is retried by the next
// scenario.
func ReadinessHook(w Waiter) Hook {
	var (
		mu    sync.Mutex
		ready bool
	)
	return func(ctx context.Context, s scenario.Scenario, _ *scenario.Config) error {
		mu.Lock()
		defer mu.Unlock()
		if ready {
			return nil
		}
		if err := w.Wait(ctx); err != nil {
			return fmt.Errorf("stack not ready for %s: %w", s.ID(), err)
		}
		ready = true
		return nil
	}
}
