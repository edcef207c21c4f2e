// Package fixture seeds backend records for scenarios and removes
// them afterwards. Names embed the worker index and a random suffix
// so parallel workers sharing one backend never collide.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"digital.vasic.agentprobe/pkg/httpclient"
	"digital.vasic.agentprobe/pkg/logging"
)

// Defaults for seeded agents.
const (
	DefaultModel              = "gpt-4o-mini"
	DefaultSystemInstructions = "You are a test agent created by the end-to-end suite."
	DefaultTaskInstructions   = "Reply with a short greeting."
)

// AgentAPI is the subset of the API client the seeder needs.
type AgentAPI interface {
	CreateAgent(ctx context.Context, spec httpclient.AgentSpec) (httpclient.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
}

// Seeder creates agents and remembers them for Cleanup. Safe for
// concurrent use.
type Seeder struct {
	api    AgentAPI
	worker int
	logger logging.Logger

	mu     sync.Mutex
	seeded []httpclient.Agent
}

// NewSeeder creates a seeder for the given worker slot. A nil
// logger discards output.
func NewSeeder(api AgentAPI, worker int, logger logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Seeder{api: api, worker: worker, logger: logger}
}

// UniqueName returns "<prefix>-w<worker>-<8 hex chars>".
func UniqueName(prefix string, worker int) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "e2e-agent"
	}
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-w%d-%s", prefix, worker, short)
}

// Spec builds a creation payload with a unique name and default
// instructions.
func (s *Seeder) Spec(prefix string) httpclient.AgentSpec {
	return httpclient.AgentSpec{
		Name:               UniqueName(prefix, s.worker),
		SystemInstructions: DefaultSystemInstructions,
		TaskInstructions:   DefaultTaskInstructions,
		Model:              DefaultModel,
	}
}

// SeedAgent creates an agent named after prefix.
func (s *Seeder) SeedAgent(ctx context.Context, prefix string) (httpclient.Agent, error) {
	return s.SeedSpec(ctx, s.Spec(prefix))
}

// SeedSpec creates an agent from an explicit spec.
func (s *Seeder) SeedSpec(ctx context.Context, spec httpclient.AgentSpec) (httpclient.Agent, error) {
	agent, err := s.api.CreateAgent(ctx, spec)
	if err != nil {
		return httpclient.Agent{}, fmt.Errorf("seed agent %s: %w", spec.Name, err)
	}
	s.Track(agent)
	s.logger.Debug("agent seeded",
		logging.StringField("id", agent.ID),
		logging.StringField("name", spec.Name),
		logging.IntField("worker", s.worker),
	)
	return agent, nil
}

// Track registers an agent created elsewhere (for example through
// the dashboard UI) for cleanup. Agents without an ID are ignored.
func (s *Seeder) Track(agent httpclient.Agent) {
	if agent.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded = append(s.seeded, agent)
}

// Seeded returns a copy of the tracked agents.
func (s *Seeder) Seeded() []httpclient.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]httpclient.Agent, len(s.seeded))
	copy(out, s.seeded)
	return out
}

// Cleanup deletes every tracked agent, newest first. Failures are
// logged and joined; the remaining deletes still run.
func (s *Seeder) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	agents := s.seeded
	s.seeded = nil
	s.mu.Unlock()

	var errs []error
	for i := len(agents) - 1; i >= 0; i-- {
		a := agents[i]
		if err := s.api.DeleteAgent(ctx, a.ID); err != nil {
			s.logger.Warn("agent cleanup failed",
				logging.StringField("id", a.ID),
				logging.ErrorField(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
