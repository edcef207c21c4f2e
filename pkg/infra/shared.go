package infra

import (
	"context"
	"fmt"
	"sync"

	"digital.vasic.agentprobe/pkg/logging"
)

// Waiter is a readiness check. readiness.Gate satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
	Probe(ctx context.Context) error
}

// SharedBackend is the Provider for an externally managed stack
// shared by every worker. EnsureRunning waits on the service's
// gate; the harness never starts or stops processes itself.
// Shutdown runs the registered cleanups.
type SharedBackend struct {
	mu       sync.Mutex
	services map[string]Waiter
	users    map[string]int
	cleanup  *Cleanup
	logger   logging.Logger
}

// NewSharedBackend creates a provider over the named gates.
func NewSharedBackend(services map[string]Waiter, cleanup *Cleanup, logger logging.Logger) *SharedBackend {
	if cleanup == nil {
		cleanup = NewCleanup(logger)
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	svc := make(map[string]Waiter, len(services))
	for k, v := range services {
		svc[k] = v
	}
	return &SharedBackend{
		services: svc,
		users:    make(map[string]int),
		cleanup:  cleanup,
		logger:   logger,
	}
}

var _ Provider = (*SharedBackend)(nil)

func (b *SharedBackend) service(name string) (Waiter, error) {
	w, ok := b.services[name]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", name)
	}
	return w, nil
}

// EnsureRunning waits for the service and counts a usage.
func (b *SharedBackend) EnsureRunning(ctx context.Context, serviceName string) error {
	w, err := b.service(serviceName)
	if err != nil {
		return err
	}
	if err := w.Wait(ctx); err != nil {
		return fmt.Errorf("service %s not ready: %w", serviceName, err)
	}
	b.mu.Lock()
	b.users[serviceName]++
	b.mu.Unlock()
	return nil
}

// HealthCheck probes the service once.
func (b *SharedBackend) HealthCheck(ctx context.Context, serviceName string) error {
	w, err := b.service(serviceName)
	if err != nil {
		return err
	}
	return w.Probe(ctx)
}

// Release drops one usage. The stack keeps running.
func (b *SharedBackend) Release(_ context.Context, serviceName string) error {
	if _, err := b.service(serviceName); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.users[serviceName] > 0 {
		b.users[serviceName]--
	}
	return nil
}

// Users returns the current usage count of a service.
func (b *SharedBackend) Users(serviceName string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.users[serviceName]
}

// Cleanup returns the cleanup registry run on Shutdown.
func (b *SharedBackend) Cleanup() *Cleanup {
	return b.cleanup
}

// Shutdown runs the registered cleanups and resets usage.
func (b *SharedBackend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.users = make(map[string]int)
	b.mu.Unlock()
	b.logger.Info("releasing shared backend")
	return b.cleanup.Run(ctx)
}
