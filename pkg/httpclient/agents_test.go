package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_CreateAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, AgentsPath, r.URL.Path)

		var spec AgentSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, "Test Agent", spec.Name)
		assert.Equal(t, "be brief", spec.SystemInstructions)
		assert.Equal(t, "say hi", spec.TaskInstructions)
		assert.Equal(t, "gpt-4o-mini", spec.Model)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"name":"Test Agent","model":"gpt-4o-mini"}`))
	}))
	defer srv.Close()

	a, err := NewAPIClient(srv.URL).CreateAgent(context.Background(), AgentSpec{
		Name:               "Test Agent",
		SystemInstructions: "be brief",
		TaskInstructions:   "say hi",
		Model:              "gpt-4o-mini",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", a.ID)
	assert.Equal(t, "Test Agent", a.Name)
	assert.Equal(t, "gpt-4o-mini", a.Fields["model"])
}

func TestAPIClient_CreateAgent_Not201(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"a"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL).CreateAgent(context.Background(), AgentSpec{Name: "x"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 200, se.StatusCode)
}

func TestAPIClient_CreateAgent_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL).CreateAgent(context.Background(), AgentSpec{Name: "x"})
	assert.ErrorContains(t, err, "parse agent")
}

func TestAPIClient_ListAgents_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
		err  string
	}{
		{"bare array", `[{"id":"a1","name":"one"},{"id":2,"name":"two"}]`, []string{"a1", "2"}, ""},
		{"wrapped agents", `{"agents":[{"id":"a1"}]}`, []string{"a1"}, ""},
		{"wrapped data", `{"data":[]}`, []string{}, ""},
		{"no array", `{"total":0}`, nil, "no agent array"},
		{"garbage", `nope`, nil, "parse agents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			agents, err := NewAPIClient(srv.URL).ListAgents(context.Background())
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(agents))
			for _, a := range agents {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestAPIClient_ListAgents_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL).ListAgents(context.Background())
	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestAPIClient_DeleteAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/agents/ok":
			w.WriteHeader(http.StatusNoContent)
		case "/api/agents/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()
	c := NewAPIClient(srv.URL)

	assert.NoError(t, c.DeleteAgent(context.Background(), "ok"))
	assert.NoError(t, c.DeleteAgent(context.Background(), "gone"))

	err := c.DeleteAgent(context.Background(), "locked")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 405, se.StatusCode)
}
