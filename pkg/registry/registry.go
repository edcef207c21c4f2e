// Package registry provides scenario registration, discovery,
// and dependency-ordered retrieval.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Registry defines the interface for managing scenarios and
// their definitions.
type Registry interface {
	// Register adds a scenario implementation.
	Register(c scenario.Scenario) error

	// RegisterDefinition adds a declarative definition.
	RegisterDefinition(def *scenario.Definition) error

	// Get retrieves a scenario by ID.
	Get(id scenario.ID) (scenario.Scenario, error)

	// GetDefinition retrieves a definition by ID.
	GetDefinition(
		id scenario.ID,
	) (*scenario.Definition, error)

	// List returns all registered scenarios sorted by ID.
	List() []scenario.Scenario

	// ListDefinitions returns all registered definitions
	// sorted by ID.
	ListDefinitions() []*scenario.Definition

	// ListByCategory returns scenarios in the given category.
	ListByCategory(category string) []scenario.Scenario

	// GetDependencyOrder returns scenarios in topological
	// (dependency) order.
	GetDependencyOrder() ([]scenario.Scenario, error)

	// Select returns the given scenarios plus everything they
	// depend on, in dependency order.
	Select(ids []scenario.ID) ([]scenario.Scenario, error)

	// ValidateDependencies checks that every dependency
	// referenced by a scenario is also registered.
	ValidateDependencies() error

	// Clear removes all scenarios and definitions.
	Clear()

	// Count returns the number of registered scenarios.
	Count() int
}

// DefaultRegistry is the standard Registry implementation.
// It is safe for concurrent use.
type DefaultRegistry struct {
	mu          sync.RWMutex
	scenarios   map[scenario.ID]scenario.Scenario
	definitions map[scenario.ID]*scenario.Definition
}

// NewRegistry creates a new, empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		scenarios:   make(map[scenario.ID]scenario.Scenario),
		definitions: make(map[scenario.ID]*scenario.Definition),
	}
}

// Register adds a scenario to the registry. Returns an error
// if a scenario with the same ID is already registered.
func (r *DefaultRegistry) Register(
	c scenario.Scenario,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if _, exists := r.scenarios[id]; exists {
		return fmt.Errorf(
			"scenario already registered: %s", id,
		)
	}

	r.scenarios[id] = c
	return nil
}

// RegisterDefinition adds a declarative scenario definition.
// Returns an error if a definition with the same ID already
// exists.
func (r *DefaultRegistry) RegisterDefinition(
	def *scenario.Definition,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.ID]; exists {
		return fmt.Errorf(
			"scenario definition already registered: %s",
			def.ID,
		)
	}

	r.definitions[def.ID] = def
	return nil
}

// Get retrieves a scenario by ID.
func (r *DefaultRegistry) Get(
	id scenario.ID,
) (scenario.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.scenarios[id]
	if !exists {
		return nil, fmt.Errorf(
			"scenario not found: %s", id,
		)
	}
	return c, nil
}

// GetDefinition retrieves a definition by ID.
func (r *DefaultRegistry) GetDefinition(
	id scenario.ID,
) (*scenario.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[id]
	if !exists {
		return nil, fmt.Errorf(
			"scenario definition not found: %s", id,
		)
	}
	return def, nil
}

// List returns all registered scenarios sorted by ID.
func (r *DefaultRegistry) List() []scenario.Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(
		[]scenario.Scenario, 0, len(r.scenarios),
	)
	for _, c := range r.scenarios {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// ListDefinitions returns all registered definitions sorted
// by ID.
func (r *DefaultRegistry) ListDefinitions() []*scenario.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(
		[]*scenario.Definition, 0, len(r.definitions),
	)
	for _, d := range r.definitions {
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// ListByCategory returns scenarios in the given category,
// sorted by ID.
func (r *DefaultRegistry) ListByCategory(
	category string,
) []scenario.Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []scenario.Scenario
	for _, c := range r.scenarios {
		if c.Category() == category {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// GetDependencyOrder returns scenarios in topological order
// using Kahn's algorithm. Returns an error if a dependency
// cycle is detected.
func (r *DefaultRegistry) GetDependencyOrder() (
	[]scenario.Scenario, error,
) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return topologicalSort(r.scenarios)
}

// Select returns the requested scenarios and their transitive
// dependencies in topological order. An empty ids selects all.
func (r *DefaultRegistry) Select(
	ids []scenario.ID,
) ([]scenario.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(ids) == 0 {
		return topologicalSort(r.scenarios)
	}

	picked := make(map[scenario.ID]scenario.Scenario)
	stack := append([]scenario.ID(nil), ids...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := picked[id]; done {
			continue
		}
		c, exists := r.scenarios[id]
		if !exists {
			return nil, fmt.Errorf("scenario not found: %s", id)
		}
		picked[id] = c
		stack = append(stack, c.Dependencies()...)
	}
	return topologicalSort(picked)
}

// ValidateDependencies checks that every dependency referenced
// by a registered scenario is also registered. Returns the
// first missing dependency found.
func (r *DefaultRegistry) ValidateDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.scenarios {
		for _, dep := range c.Dependencies() {
			if _, exists := r.scenarios[dep]; !exists {
				return fmt.Errorf(
					"scenario %s has unregistered "+
						"dependency: %s",
					id, dep,
				)
			}
		}
	}
	return nil
}

// Clear removes all scenarios and definitions.
func (r *DefaultRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scenarios = make(
		map[scenario.ID]scenario.Scenario,
	)
	r.definitions = make(
		map[scenario.ID]*scenario.Definition,
	)
}

// Count returns the number of registered scenarios.
func (r *DefaultRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios)
}
