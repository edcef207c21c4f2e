// Package assertion evaluates scenario assertions: HTTP statuses,
// latencies, response bodies and observed WebSocket event types.
// It ships with built-in evaluators and supports custom ones.
package assertion

import "digital.vasic.agentprobe/pkg/scenario"

// Definition describes a single assertion to evaluate against a
// scenario output or metric value.
type Definition = scenario.AssertionDef

// Result captures the outcome of evaluating a single assertion.
type Result = scenario.AssertionResult
