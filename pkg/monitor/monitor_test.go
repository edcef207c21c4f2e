package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"digital.vasic.agentprobe/pkg/metrics"
	"digital.vasic.agentprobe/pkg/scenario"
	"digital.vasic.agentprobe/pkg/wsprobe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCollector_EmitAndHandlers(t *testing.T) {
	c := NewEventCollector()

	var mu sync.Mutex
	var received []ScenarioEvent
	c.OnEvent(func(e ScenarioEvent) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	c.Emit(ScenarioEvent{Type: EventStarted, ScenarioID: "api-health"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestEventCollector_EmitResultStats(t *testing.T) {
	c := NewEventCollector()
	c.EmitStarted("api-health", "API health")
	c.EmitResult(&scenario.Result{ScenarioID: "api-health", Status: scenario.StatusPassed})
	c.EmitResult(&scenario.Result{ScenarioID: "navigation", Status: scenario.StatusFailed, Error: "x"})
	c.EmitResult(&scenario.Result{ScenarioID: "chat-open", Status: scenario.StatusSkipped})
	c.EmitResult(&scenario.Result{ScenarioID: "a", Status: scenario.StatusTimedOut})
	c.EmitResult(&scenario.Result{ScenarioID: "b", Status: scenario.StatusStuck})
	c.EmitResult(&scenario.Result{ScenarioID: "c", Status: scenario.StatusError})
	c.EmitResult(nil)
	c.EmitLog("backend ready")

	s := c.Stats()
	assert.Equal(t, 1, s.Started)
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.TimedOut)
	assert.Equal(t, 1, s.Stuck)
	assert.Equal(t, 1, s.Errored)
	assert.Len(t, c.Events(), 8)

	c.Reset()
	assert.Empty(t, c.Events())
	assert.Equal(t, 0, c.Stats().Total)
}

func TestScenarioEvent_Frame(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := ScenarioEvent{
		Type:        EventFailed,
		ScenarioID:  "agents-ui-create",
		Name:        "Create agent in UI",
		Status:      scenario.StatusFailed,
		Message:     "agent not listed",
		WorkerIndex: 2,
		Duration:    1500 * time.Millisecond,
		Timestamp:   ts,
	}.Frame()

	assert.Equal(t, "failed", f.Type)
	assert.Equal(t, "2026-01-02T03:04:05Z", f.Timestamp)
	assert.Equal(t, "agents-ui-create", f.Data["scenario_id"])
	assert.Equal(t, int64(1500), f.Data["duration_ms"])
	assert.Equal(t, 2, f.Data["worker_index"])
	assert.NotContains(t, f.Data, "category")

	// The wire frame must round-trip through the suite's own parser.
	data, err := json.Marshal(f)
	require.NoError(t, err)
	ev, ok := wsprobe.ParseEvent(data)
	require.True(t, ok)
	assert.Equal(t, "failed", ev.Type)
	assert.True(t, ev.Timestamp.Equal(ts))
}

func TestDashboardData_UpdateFromEvent(t *testing.T) {
	d := NewDashboardData("run-1")
	d.UpdateFromEvent(ScenarioEvent{Type: EventStarted, ScenarioID: "a", Name: "A"})
	d.UpdateFromEvent(ScenarioEvent{Type: EventStarted, ScenarioID: "b", Name: "B"})
	d.UpdateFromEvent(ScenarioEvent{Type: EventStarted, ScenarioID: "c", Name: "C"})
	d.UpdateFromEvent(ScenarioEvent{Type: EventCompleted, ScenarioID: "a", Duration: time.Second})
	d.UpdateFromEvent(ScenarioEvent{Type: EventTimedOut, ScenarioID: "b", Status: scenario.StatusTimedOut})
	d.UpdateFromEvent(ScenarioEvent{Type: EventLog, Message: "ignored"})

	snap := d.Snapshot()
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, scenario.StatusPassed, snap.Scenarios["a"].Status)
	assert.Equal(t, scenario.StatusTimedOut, snap.Scenarios["b"].Status)
	assert.Equal(t, scenario.StatusRunning, snap.Scenarios["c"].Status)
	assert.Equal(t, 3, snap.Summary.Total)
	assert.Equal(t, 1, snap.Summary.Passed)
	assert.Equal(t, 1, snap.Summary.Failed)
	assert.Equal(t, 1, snap.Summary.Running)
	assert.InDelta(t, 50.0, snap.Summary.PassRate, 0.001)

	d.SetStatus("completed")
	assert.Equal(t, "completed", d.Snapshot().Status)

	snap.Scenarios["a"] = ScenarioState{}
	assert.Equal(t, scenario.StatusPassed, d.Snapshot().Scenarios["a"].Status)
}

func TestBuildDashboardData(t *testing.T) {
	c := NewEventCollector()
	c.EmitStarted("api-health", "API health")
	c.EmitResult(&scenario.Result{ScenarioID: "api-health", Status: scenario.StatusPassed})

	snap := BuildDashboardData("replay", c).Snapshot()
	assert.Equal(t, "replay", snap.RunID)
	assert.Equal(t, 1, snap.Summary.Passed)
}

func newTestServer(t *testing.T) (*WebSocketServer, *EventCollector, *httptest.Server) {
	t.Helper()
	collector := NewEventCollector()
	srv := NewWebSocketServer("", collector, NewDashboardData("run-ws"))
	m := metrics.NewPrometheusMetrics()
	m.IncrementRunTotal()
	srv.SetMetricsHandler(m.Handler())
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return srv, collector, hs
}

func TestWebSocketServer_HTTPEndpoints(t *testing.T) {
	_, collector, hs := newTestServer(t)
	collector.EmitStarted("navigation", "Navigation")

	get := func(path string) (int, string) {
		resp, err := http.Get(hs.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	code, body := get("/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, body = get("/dashboard")
	assert.Equal(t, http.StatusOK, code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Equal(t, "run-ws", snap.RunID)
	assert.Equal(t, scenario.StatusRunning, snap.Scenarios["navigation"].Status)

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "agentprobe_runs_total 1")
}

func TestWebSocketServer_StreamsFrames(t *testing.T) {
	srv, collector, hs := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	l, err := wsprobe.Dial(ctx, wsURL)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.WaitForType(ctx, "dashboard")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	collector.EmitStarted("websocket-events", "WebSocket events")
	collector.EmitResult(&scenario.Result{
		ScenarioID: "websocket-events", Status: scenario.StatusPassed, WorkerIndex: 1,
	})

	ev, err := l.WaitForType(ctx, "completed")
	require.NoError(t, err)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "websocket-events", data["scenario_id"])
	assert.Equal(t, float64(1), data["worker_index"])
	assert.False(t, ev.Timestamp.IsZero())
}

func TestWebSocketServer_StartStop(t *testing.T) {
	srv := NewWebSocketServer("127.0.0.1:0", NewEventCollector(), NewDashboardData("r"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		return srv.Addr() != "127.0.0.1:0"
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, srv.Stop(stopCtx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestWebSocketServer_StartBadAddr(t *testing.T) {
	srv := NewWebSocketServer("256.0.0.1:bad", NewEventCollector(), NewDashboardData("r"))
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor listen")
	assert.NoError(t, srv.Stop(context.Background()))
}
