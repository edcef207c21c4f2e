// Package scenario defines the unit of work of the end-to-end
// suite: a scripted flow against the running application stack
// (dashboard, chat frontend, backend API and WebSocket) that
// produces a Result with assertions and metrics.
package scenario

import "context"

// ID uniquely identifies a scenario.
type ID string

// Categories used to group scenarios.
const (
	CategoryAPI        = "api"
	CategoryNavigation = "navigation"
	CategoryAgents     = "agents"
	CategoryWebSocket  = "websocket"
	CategoryChat       = "chat"
)

// Scenario is a single end-to-end flow. Each scenario goes through
// Configure -> Validate -> Execute -> Cleanup. Dependencies between
// scenarios are expressed via ID references and resolved by the
// runner.
type Scenario interface {
	// ID returns the unique identifier for this scenario.
	ID() ID

	// Name returns the human-readable name.
	Name() string

	// Description explains what the flow verifies.
	Description() string

	// Category returns one of the Category* constants.
	Category() string

	// Dependencies returns the IDs of scenarios that must pass
	// before this one runs.
	Dependencies() []ID

	// Configure applies runtime configuration. Must be called
	// before Validate or Execute.
	Configure(config *Config) error

	// Validate checks preconditions (target reachable, required
	// settings present). A validation error skips the scenario.
	Validate(ctx context.Context) error

	// Execute runs the flow and returns its result.
	Execute(ctx context.Context) (*Result, error)

	// Cleanup releases browsers, sockets and seeded fixtures.
	Cleanup(ctx context.Context) error
}

// Logger is the minimal logging surface scenarios and the runner
// depend on. logging.Logger values are adapted to it with
// logging.KV.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Close() error
}

// AssertionEngine evaluates assertions against observed values.
type AssertionEngine interface {
	// Evaluate checks a single assertion against the given value.
	Evaluate(assertion AssertionDef, value any) AssertionResult

	// EvaluateAll checks multiple assertions against a map of
	// named values keyed by each assertion's Target.
	EvaluateAll(
		assertions []AssertionDef,
		values map[string]any,
	) []AssertionResult
}
