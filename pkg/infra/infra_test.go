package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.agentprobe/pkg/logging"
	"digital.vasic.agentprobe/pkg/readiness"
)

func TestCleanup_RunsInReverseOrderAndJoinsErrors(t *testing.T) {
	c := NewCleanup(nil)
	var order []string
	c.Add("agents", func(context.Context) error {
		order = append(order, "agents")
		return errors.New("delete failed")
	})
	c.Add("browser", func(context.Context) error {
		order = append(order, "browser")
		return nil
	})
	c.Add("socket", func(context.Context) error {
		order = append(order, "socket")
		return errors.New("already closed")
	})
	require.Equal(t, 3, c.Len())

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"socket", "browser", "agents"}, order)
	assert.Contains(t, err.Error(), "agents: delete failed")
	assert.Contains(t, err.Error(), "socket: already closed")
	assert.Zero(t, c.Len())
}

func TestCleanup_RunsEachFunctionOnce(t *testing.T) {
	c := NewCleanup(logging.NullLogger{})
	var calls atomic.Int32
	c.Add("once", func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCleanup_RunsWithCancelledContext(t *testing.T) {
	c := NewCleanup(nil)
	ran := false
	c.Add("fixtures", func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Run(ctx))
	assert.True(t, ran)
}

func healthServer(t *testing.T, healthy *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" && healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSharedBackend_Lifecycle(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := healthServer(t, &healthy)

	gate := readiness.New(srv.URL, 3, readiness.WithInterval(10*time.Millisecond))
	cleanup := NewCleanup(nil)
	cleaned := false
	cleanup.Add("seeded agents", func(context.Context) error {
		cleaned = true
		return nil
	})

	b := NewSharedBackend(map[string]Waiter{ServiceBackend: gate}, cleanup, nil)
	ctx := context.Background()

	require.NoError(t, b.EnsureRunning(ctx, ServiceBackend))
	require.NoError(t, b.EnsureRunning(ctx, ServiceBackend))
	assert.Equal(t, 2, b.Users(ServiceBackend))
	require.NoError(t, b.HealthCheck(ctx, ServiceBackend))

	require.NoError(t, b.Release(ctx, ServiceBackend))
	assert.Equal(t, 1, b.Users(ServiceBackend))

	require.NoError(t, b.Shutdown(ctx))
	assert.True(t, cleaned)
	assert.Zero(t, b.Users(ServiceBackend))
	assert.Same(t, cleanup, b.Cleanup())
}

func TestSharedBackend_NotReady(t *testing.T) {
	var healthy atomic.Bool
	srv := healthServer(t, &healthy)

	gate := readiness.New(srv.URL, 2, readiness.WithInterval(5*time.Millisecond))
	b := NewSharedBackend(map[string]Waiter{ServiceBackend: gate}, nil, nil)

	err := b.EnsureRunning(context.Background(), ServiceBackend)
	require.Error(t, err)
	assert.True(t, readiness.IsTimeout(err))
	assert.Zero(t, b.Users(ServiceBackend))

	var statusErr *readiness.StatusError
	require.ErrorAs(t, b.HealthCheck(context.Background(), ServiceBackend), &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestSharedBackend_UnknownService(t *testing.T) {
	b := NewSharedBackend(nil, nil, nil)
	ctx := context.Background()
	assert.ErrorContains(t, b.EnsureRunning(ctx, ServiceProxy), "unknown service")
	assert.ErrorContains(t, b.HealthCheck(ctx, ServiceProxy), "unknown service")
	assert.ErrorContains(t, b.Release(ctx, ServiceProxy), "unknown service")
	assert.NoError(t, b.Shutdown(ctx))
}

func TestHandleSignals_CancelsAndCleansUp(t *testing.T) {
	cleanup := NewCleanup(nil)
	cleaned := make(chan struct{})
	cleanup.Add("browser", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		close(cleaned)
		return nil
	})

	ctx, stop := HandleSignals(context.Background(), cleanup, nil, withSignals(syscall.SIGUSR1))
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after signal")
	}
	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup not run after signal")
	}
}

func TestHandleSignals_ExitsAfterCleanup(t *testing.T) {
	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	cleanup := NewCleanup(nil)
	cleanup.Add("fixtures", func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		record("cleanup")
		return nil
	})

	exited := make(chan int, 1)
	ctx, stop := HandleSignals(context.Background(), cleanup, nil,
		withSignals(syscall.SIGUSR2),
		ExitOnSignal(func(code int) {
			record("exit")
			exited <- code
		}),
	)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR2))

	select {
	case code := <-exited:
		assert.Equal(t, 128+int(syscall.SIGUSR2), code)
	case <-time.After(2 * time.Second):
		t.Fatal("process not terminated after signal")
	}
	assert.Error(t, ctx.Err())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"cleanup", "exit"}, order)
}

func TestHandleSignals_StopCancelsWithoutCleanup(t *testing.T) {
	cleanup := NewCleanup(nil)
	cleanup.Add("never", func(context.Context) error {
		t.Error("cleanup must not run without a signal")
		return nil
	})

	ctx, stop := HandleSignals(context.Background(), cleanup, nil)
	stop()
	stop()

	<-ctx.Done()
	assert.Equal(t, 1, cleanup.Len())
}
