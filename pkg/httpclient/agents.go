package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// AgentsPath is the agent collection endpoint.
const AgentsPath = "/api/agents"

// AgentSpec is the creation payload accepted by POST /api/agents.
type AgentSpec struct {
	Name               string `json:"name"`
	SystemInstructions string `json:"system_instructions"`
	TaskInstructions   string `json:"task_instructions"`
	Model              string `json:"model"`
}

// Agent is an agent record as returned by the backend. The schema
// is not fixed, so the full object is kept in Fields.
type Agent struct {
	ID     string
	Name   string
	Fields map[string]any
}

// agentFromMap extracts id and name. Numeric ids are formatted
// without a fraction.
func agentFromMap(m map[string]any) Agent {
	a := Agent{Fields: m}
	switch id := m["id"].(type) {
	case string:
		a.ID = id
	case float64:
		a.ID = strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
	default:
		a.ID = fmt.Sprint(id)
	}
	a.Name, _ = m["name"].(string)
	return a
}

// CreateAgent posts spec and expects 201 Created with a JSON agent
// record.
func (c *APIClient) CreateAgent(ctx context.Context, spec AgentSpec) (Agent, error) {
	code, data, err := c.PostJSON(ctx, AgentsPath, spec)
	if err != nil {
		return Agent{}, fmt.Errorf("create agent: %w", err)
	}
	if code != http.StatusCreated {
		return Agent{}, &StatusError{
			Method: http.MethodPost, Path: AgentsPath,
			StatusCode: code, Body: preview(data),
		}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Agent{}, fmt.Errorf("parse agent: %w", err)
	}
	return agentFromMap(m), nil
}

// ListAgents returns every agent. Both a bare array and an object
// wrapping the array under "agents", "items" or "data" are accepted.
func (c *APIClient) ListAgents(ctx context.Context) ([]Agent, error) {
	code, data, err := c.GetRaw(ctx, AgentsPath)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	if code < 200 || code > 299 {
		return nil, &StatusError{
			Method: http.MethodGet, Path: AgentsPath,
			StatusCode: code, Body: preview(data),
		}
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped map[string]json.RawMessage
		if werr := json.Unmarshal(data, &wrapped); werr != nil {
			return nil, fmt.Errorf("parse agents: %w", err)
		}
		found := false
		for _, key := range []string{"agents", "items", "data"} {
			raw, ok := wrapped[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("parse agents.%s: %w", key, err)
			}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("parse agents: no agent array in response")
		}
	}

	out := make([]Agent, 0, len(items))
	for _, m := range items {
		out = append(out, agentFromMap(m))
	}
	return out, nil
}

// DeleteAgent removes an agent. 404 counts as success since the
// agent is gone either way.
func (c *APIClient) DeleteAgent(ctx context.Context, id string) error {
	path := AgentsPath + "/" + url.PathEscape(id)
	code, err := c.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	if code == http.StatusNotFound || (code >= 200 && code <= 299) {
		return nil
	}
	return &StatusError{Method: http.MethodDelete, Path: path, StatusCode: code}
}
