package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"digital.vasic.agentprobe/pkg/logging"
)

type cleanupFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// Cleanup collects teardown functions (seeded fixtures, browsers,
// sockets) and runs them best effort. Each function runs at most
// once even when Run is called from both a signal handler and
// normal exit.
type Cleanup struct {
	mu     sync.Mutex
	funcs  []cleanupFunc
	logger logging.Logger
}

// NewCleanup creates an empty registry.
func NewCleanup(logger logging.Logger) *Cleanup {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Cleanup{logger: logger}
}

// Add registers fn under a name used in logs and errors.
func (c *Cleanup) Add(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, cleanupFunc{name: name, fn: fn})
}

// Len returns the number of pending functions.
func (c *Cleanup) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.funcs)
}

// Run executes pending functions in reverse registration order.
// Every function runs even if earlier ones fail or ctx is done;
// failures are logged and joined.
func (c *Cleanup) Run(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.funcs
	c.funcs = nil
	c.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		if err := f.fn(ctx); err != nil {
			c.logger.Warn("cleanup failed",
				logging.StringField("name", f.name),
				logging.ErrorField(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		c.logger.Debug("cleanup done", logging.StringField("name", f.name))
	}
	return errors.Join(errs...)
}
