// Package fakestack serves an in-process stand-in for the stack under
// test: a backend with /health, /api/agents and /ws, plus minimal
// dashboard and chat pages behind the same listener. Unit tests use
// it in place of the real services.
package fakestack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Page markup served by the fake proxy routes.
const (
	DashboardHTML = `<!doctype html><html><body><div id="root"><nav>Dashboard</nav></div></body></html>`
	AgentsHTML    = `<!doctype html><html><body><main><button>New Agent</button><ul id="agents"></ul></main></body></html>`
	ChatHTML      = `<!doctype html><html><body><main><textarea name="message"></textarea></main></body></html>`
)

// Stack is a running fake. Create it with New and Close it when done.
type Stack struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	healthy    atomic.Bool
	chatServed atomic.Bool
	silentWS   atomic.Bool
	creates    atomic.Int64
	deletes    atomic.Int64

	mu     sync.Mutex
	agents map[string]map[string]any
	nextID int

	wsMu    sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New starts a healthy fake stack with the chat frontend served.
func New() *Stack {
	s := &Stack{
		agents:  make(map[string]map[string]any),
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.healthy.Store(true)
	s.chatServed.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/agents", s.handleList)
	mux.HandleFunc("POST /api/agents", s.handleCreate)
	mux.HandleFunc("DELETE /api/agents/{id}", s.handleDelete)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /agents", s.page(AgentsHTML, nil))
	mux.HandleFunc("GET /chat", s.page(ChatHTML, &s.chatServed))
	mux.HandleFunc("GET /{$}", s.page(DashboardHTML, nil))

	s.server = httptest.NewServer(mux)
	return s
}

// URL is the base URL for both the backend and the proxy routes.
func (s *Stack) URL() string { return s.server.URL }

// WebSocketURL is the ws:// address of the event stream.
func (s *Stack) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

// SetHealthy switches /health between 200 and 503.
func (s *Stack) SetHealthy(ok bool) { s.healthy.Store(ok) }

// SetChatServed switches /chat between the chat page and 404.
func (s *Stack) SetChatServed(ok bool) { s.chatServed.Store(ok) }

// SetSilentWebSocket stops agent events from being broadcast.
func (s *Stack) SetSilentWebSocket(silent bool) { s.silentWS.Store(silent) }

// Creates returns how many agents were created.
func (s *Stack) Creates() int { return int(s.creates.Load()) }

// Deletes returns how many deletes succeeded.
func (s *Stack) Deletes() int { return int(s.deletes.Load()) }

// Agents returns the stored agents sorted by id.
func (s *Stack) Agents() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]["id"]) < fmt.Sprint(out[j]["id"])
	})
	return out
}

// AgentNames returns the names of the stored agents.
func (s *Stack) AgentNames() []string {
	var names []string
	for _, a := range s.Agents() {
		if n, ok := a["name"].(string); ok {
			names = append(names, n)
		}
	}
	return names
}

// CreateAgent stores an agent as if it came through the API and
// broadcasts the creation event.
func (s *Stack) CreateAgent(fields map[string]any) map[string]any {
	s.mu.Lock()
	s.nextID++
	agent := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		agent[k] = v
	}
	agent["id"] = strconv.Itoa(s.nextID)
	agent["created_at"] = time.Now().UTC().Format(time.RFC3339)
	s.agents[agent["id"].(string)] = agent
	s.mu.Unlock()

	s.creates.Add(1)
	if !s.silentWS.Load() {
		s.Broadcast(map[string]any{
			"event_type": "agent_created",
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
			"data":       agent,
		})
	}
	return agent
}

// Broadcast sends v as a JSON text frame to every connected client.
func (s *Stack) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.BroadcastRaw(data)
}

// BroadcastRaw sends data verbatim to every connected client.
func (s *Stack) BroadcastRaw(data []byte) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for c := range s.clients {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = c.Close()
			delete(s.clients, c)
		}
	}
}

// Clients returns the number of connected WebSocket clients.
func (s *Stack) Clients() int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return len(s.clients)
}

// Close disconnects clients and stops the server.
func (s *Stack) Close() {
	s.wsMu.Lock()
	for c := range s.clients {
		_ = c.Close()
		delete(s.clients, c)
	}
	s.wsMu.Unlock()
	s.server.Close()
}

func (s *Stack) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.healthy.Load() {
		http.Error(w, "starting", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Stack) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.Agents()})
}

func (s *Stack) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if name, _ := body["name"].(string); strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "name is required"})
		return
	}
	writeJSON(w, http.StatusCreated, s.CreateAgent(body))
}

func (s *Stack) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	_, ok := s.agents[id]
	delete(s.agents, id)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.deletes.Add(1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Stack) handleWS(w http.ResponseWriter, r *http.Request) {
	// Registered under the lock so a broadcast issued right after the
	// client's handshake completes still reaches it.
	s.wsMu.Lock()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wsMu.Unlock()
		return
	}
	s.clients[conn] = struct{}{}
	s.wsMu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.wsMu.Lock()
	delete(s.clients, conn)
	s.wsMu.Unlock()
	_ = conn.Close()
}

func (s *Stack) page(html string, served *atomic.Bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if served != nil && !served.Load() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
