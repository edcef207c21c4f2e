package registry

import (
	"context"
	"testing"

	"digital.vasic.agentprobe/pkg/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubScenario is a minimal Scenario implementation for
// testing.
type stubScenario struct {
	id       scenario.ID
	name     string
	desc     string
	category string
	deps     []scenario.ID
}

func (s *stubScenario) ID() scenario.ID            { return s.id }
func (s *stubScenario) Name() string                { return s.name }
func (s *stubScenario) Description() string         { return s.desc }
func (s *stubScenario) Category() string            { return s.category }
func (s *stubScenario) Dependencies() []scenario.ID { return s.deps }

func (s *stubScenario) Configure(
	_ *scenario.Config,
) error {
	return nil
}

func (s *stubScenario) Validate(
	_ context.Context,
) error {
	return nil
}

func (s *stubScenario) Execute(
	_ context.Context,
) (*scenario.Result, error) {
	return &scenario.Result{Status: scenario.StatusPassed}, nil
}

func (s *stubScenario) Cleanup(_ context.Context) error {
	return nil
}

func newStub(
	id string, deps ...string,
) *stubScenario {
	depIDs := make([]scenario.ID, len(deps))
	for i, d := range deps {
		depIDs[i] = scenario.ID(d)
	}
	return &stubScenario{
		id:   scenario.ID(id),
		name: id,
		desc: "stub " + id,
		deps: depIDs,
	}
}

func TestDefaultRegistry_Register_Success(t *testing.T) {
	r := NewRegistry()
	err := r.Register(newStub("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count())
}

func TestDefaultRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("a")))

	err := r.Register(newStub("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestDefaultRegistry_Get_Found(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("x")))

	c, err := r.Get("x")
	require.NoError(t, err)
	assert.Equal(t, scenario.ID("x"), c.ID())
}

func TestDefaultRegistry_Get_NotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDefaultRegistry_RegisterDefinition(t *testing.T) {
	r := NewRegistry()
	def := &scenario.Definition{
		ID:       "def1",
		Name:     "Def 1",
		Category: "core",
	}

	require.NoError(t, r.RegisterDefinition(def))

	got, err := r.GetDefinition("def1")
	require.NoError(t, err)
	assert.Equal(t, "Def 1", got.Name)
}

func TestDefaultRegistry_RegisterDefinition_Dup(t *testing.T) {
	r := NewRegistry()
	def := &scenario.Definition{ID: "d1"}
	require.NoError(t, r.RegisterDefinition(def))

	err := r.RegisterDefinition(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestDefaultRegistry_List_Sorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("c")))
	require.NoError(t, r.Register(newStub("a")))
	require.NoError(t, r.Register(newStub("b")))

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, scenario.ID("a"), list[0].ID())
	assert.Equal(t, scenario.ID("b"), list[1].ID())
	assert.Equal(t, scenario.ID("c"), list[2].ID())
}

func TestDefaultRegistry_ListDefinitions_Sorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterDefinition(
		&scenario.Definition{ID: "z"},
	))
	require.NoError(t, r.RegisterDefinition(
		&scenario.Definition{ID: "a"},
	))

	defs := r.ListDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, scenario.ID("a"), defs[0].ID)
	assert.Equal(t, scenario.ID("z"), defs[1].ID)
}

func TestDefaultRegistry_ListByCategory(t *testing.T) {
	r := NewRegistry()
	a := newStub("a")
	a.category = scenario.CategoryAPI
	b := newStub("b")
	b.category = scenario.CategoryWebSocket
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	api := r.ListByCategory(scenario.CategoryAPI)
	require.Len(t, api, 1)
	assert.Equal(t, scenario.ID("a"), api[0].ID())

	ws := r.ListByCategory(scenario.CategoryWebSocket)
	require.Len(t, ws, 1)
	assert.Equal(t, scenario.ID("b"), ws[0].ID())

	none := r.ListByCategory("missing")
	assert.Empty(t, none)
}

func TestDefaultRegistry_ValidateDependencies_OK(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("a")))
	require.NoError(t, r.Register(newStub("b", "a")))

	assert.NoError(t, r.ValidateDependencies())
}

func TestDefaultRegistry_ValidateDependencies_Missing(
	t *testing.T,
) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("b", "missing")))

	err := r.ValidateDependencies()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered dependency")
}

func TestDefaultRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("a")))
	require.NoError(t, r.RegisterDefinition(
		&scenario.Definition{ID: "a"},
	))

	r.Clear()
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.ListDefinitions())
}

func TestDefaultRegistry_Count(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Count())

	require.NoError(t, r.Register(newStub("a")))
	assert.Equal(t, 1, r.Count())

	require.NoError(t, r.Register(newStub("b")))
	assert.Equal(t, 2, r.Count())
}

func TestDefaultRegistry_Select(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("api-health")))
	require.NoError(t, r.Register(newStub("agents-api-create", "api-health")))
	require.NoError(t, r.Register(newStub("websocket-events", "agents-api-create")))
	require.NoError(t, r.Register(newStub("chat-open")))

	picked, err := r.Select([]scenario.ID{"websocket-events"})
	require.NoError(t, err)
	ids := make([]scenario.ID, len(picked))
	for i, c := range picked {
		ids[i] = c.ID()
	}
	assert.Equal(t, []scenario.ID{
		"api-health", "agents-api-create", "websocket-events",
	}, ids)

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = r.Select([]scenario.ID{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDefaultRegistry_SelectMissingDependency(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("b", "a")))

	_, err := r.Select([]scenario.ID{"b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario not found: a")
}
