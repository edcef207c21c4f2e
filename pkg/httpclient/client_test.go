package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.agentprobe/pkg/logging"
)

type apiRecorder struct {
	logging.NullLogger
	mu        sync.Mutex
	requests  []logging.APIRequestLog
	responses []logging.APIResponseLog
}

func (r *apiRecorder) LogAPIRequest(req logging.APIRequestLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *apiRecorder) LogAPIResponse(resp logging.APIResponseLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func TestNewAPIClient_DefaultsAndOptions(t *testing.T) {
	c := NewAPIClient("http://localhost:8000/")
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
	assert.Equal(t, "", c.Token())
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)

	c = NewAPIClient("http://x", WithTimeout(5*time.Second), WithToken("t"))
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Equal(t, "t", c.Token())

	hc := &http.Client{}
	c = NewAPIClient("http://x", WithHTTPClient(hc), WithHTTPClient(nil), WithLogger(nil))
	assert.Same(t, hc, c.httpClient)
	assert.IsType(t, logging.NullLogger{}, c.logger)

	c.SetToken("later")
	assert.Equal(t, "later", c.Token())
}

func TestWithTimeout_LeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := NewAPIClient("http://x", WithHTTPClient(shared), WithTimeout(3*time.Second))
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)
	assert.Equal(t, time.Minute, shared.Timeout)

	before := http.DefaultClient.Timeout
	c = NewAPIClient("http://x", WithTimeout(2*time.Second), WithHTTPClient(http.DefaultClient))
	assert.Equal(t, 2*time.Second, c.httpClient.Timeout)
	assert.Equal(t, before, http.DefaultClient.Timeout)
}

func TestAPIClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	code, err := c.Health(context.Background(), "/health")
	require.NoError(t, err)
	assert.Equal(t, 200, code)

	code, err = c.Health(context.Background(), "/other")
	require.NoError(t, err)
	assert.Equal(t, 503, code)
}

func TestAPIClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAPIClient(url).Health(context.Background(), "/health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestAPIClient_Get_BearerAndJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	code, body, err := NewAPIClient(srv.URL, WithToken("tok")).Get(context.Background(), "/health")
	require.NoError(t, err)
	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", body["status"])
}

func TestAPIClient_Get_NoAuthHeaderWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, _, err := NewAPIClient(srv.URL).Get(context.Background(), "/")
	assert.NoError(t, err)
}

func TestAPIClient_GetArrayAndRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/arr":
			_, _ = w.Write([]byte(`[1,2,3]`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()
	c := NewAPIClient(srv.URL)

	_, arr, err := c.GetArray(context.Background(), "/arr")
	require.NoError(t, err)
	assert.Len(t, arr, 3)

	_, raw, err := c.GetRaw(context.Background(), "/raw")
	require.NoError(t, err)
	assert.Equal(t, "not json", string(raw))

	_, _, err = c.Get(context.Background(), "/raw")
	assert.ErrorContains(t, err, "parse response")
	_, _, err = c.GetArray(context.Background(), "/raw")
	assert.ErrorContains(t, err, "parse response")
}

func TestAPIClient_PostJSON_BodyKinds(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var m map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		got = append(got, m["name"].(string))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()
	c := NewAPIClient(srv.URL)

	for _, body := range []any{
		`{"name":"s"}`,
		[]byte(`{"name":"b"}`),
		map[string]string{"name": "m"},
	} {
		code, _, err := c.PostJSON(context.Background(), "/x", body)
		require.NoError(t, err)
		assert.Equal(t, 202, code)
	}
	assert.Equal(t, []string{"s", "b", "m"}, got)

	_, _, err := c.PostJSON(context.Background(), "/x", make(chan int))
	assert.ErrorContains(t, err, "marshal body")
}

func TestAPIClient_LogsExchanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(strings.Repeat("x", bodyPreviewLimit+10)))
	}))
	defer srv.Close()

	rec := &apiRecorder{}
	c := NewAPIClient(srv.URL, WithLogger(rec), WithToken("tok-abcdef"))
	_, _, err := c.PostJSON(context.Background(), "/api/agents", `{"name":"a"}`)
	require.NoError(t, err)

	require.Len(t, rec.requests, 1)
	require.Len(t, rec.responses, 1)
	req, resp := rec.requests[0], rec.responses[0]
	assert.Equal(t, req.RequestID, resp.RequestID)
	assert.NotEmpty(t, req.RequestID)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, srv.URL+"/api/agents", req.URL)
	assert.Equal(t, `{"name":"a"}`, req.Body)
	assert.Equal(t, "Bearer tok-abcdef", req.Headers["Authorization"])
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, bodyPreviewLimit+10, resp.BodyLength)
	assert.True(t, strings.HasSuffix(resp.BodyPreview, "..."))
}

func TestAPIClient_Delete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	code, err := NewAPIClient(srv.URL).Delete(context.Background(), "/api/agents/1")
	require.NoError(t, err)
	assert.Equal(t, 204, code)
}

func TestStatusError(t *testing.T) {
	var err error = &StatusError{Method: "POST", Path: "/api/agents", StatusCode: 422, Body: "bad"}
	assert.Equal(t, "POST /api/agents returned HTTP 422: bad", err.Error())

	var se *StatusError
	assert.True(t, errors.As(err, &se))
}
