// Package infra manages the stack the suite runs against. The
// stack itself is started outside the harness; infra only waits
// for it, probes it, and owns best-effort cleanup of what the
// suite created.
package infra

import "context"

// Service names known to SharedBackend.
const (
	ServiceBackend = "backend"
	ServiceProxy   = "proxy"
)

// Provider defines the interface for infrastructure management.
type Provider interface {
	// EnsureRunning blocks until a service is ready.
	EnsureRunning(ctx context.Context, serviceName string) error
	// Release drops one usage of a service.
	Release(ctx context.Context, serviceName string) error
	// HealthCheck runs a single probe against a service.
	HealthCheck(ctx context.Context, serviceName string) error
	// Shutdown releases everything the suite holds.
	Shutdown(ctx context.Context) error
}
