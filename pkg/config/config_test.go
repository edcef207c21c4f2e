package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.agentprobe/pkg/env"
)

// clearStackEnv keeps the host environment from leaking into tests.
func clearStackEnv(t *testing.T) {
	t.Helper()
	for _, b := range envBindings {
		t.Setenv(b.Env, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearStackEnv(t)
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.BackendURL())
	assert.Equal(t, "ws://localhost:8000/ws", cfg.WebSocketURL())
	assert.Equal(t, "http://localhost:8080", cfg.Proxy.BaseURL)
	assert.Equal(t, 0, cfg.Worker.Index)
	assert.Equal(t, 30, cfg.Readiness.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Readiness.Interval)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_Precedence(t *testing.T) {
	clearStackEnv(t)
	cfgPath := writeFile(t, "agentprobe.yaml", `
backend:
  port: 7000
proxy:
  base_url: http://file-proxy:9000
readiness:
  interval: 250ms
run:
  results_dir: out
`)
	envPath := writeFile(t, ".env", "BACKEND_PORT=7100\nTEST_WORKER_INDEX=3\n")
	t.Setenv(EnvUnifiedBaseURL, "http://os-proxy:9100")

	cfg, err := Load(LoadOptions{
		ConfigPath:    cfgPath,
		EnvFile:       envPath,
		FlagOverrides: map[string]any{"run.results_dir": "flag-out"},
	})
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Backend.Port)
	assert.Equal(t, "http://os-proxy:9100", cfg.Proxy.BaseURL)
	assert.Equal(t, 3, cfg.Worker.Index)
	assert.Equal(t, 250*time.Millisecond, cfg.Readiness.Interval)
	assert.Equal(t, "flag-out", cfg.Run.ResultsDir)
}

func TestLoad_OSEnvBeatsEnvFile(t *testing.T) {
	clearStackEnv(t)
	envPath := writeFile(t, ".env", "BACKEND_PORT=7100\n")
	t.Setenv(EnvBackendPort, "7200")

	cfg, err := Load(LoadOptions{EnvFile: envPath})
	require.NoError(t, err)
	assert.Equal(t, 7200, cfg.Backend.Port)
}

func TestLoad_MissingFiles(t *testing.T) {
	clearStackEnv(t)
	_, err := Load(LoadOptions{
		ConfigPath: "/nonexistent/agentprobe.yaml",
		EnvFile:    "/nonexistent/.env",
	})
	require.NoError(t, err)

	_, err = Load(LoadOptions{ConfigPath: "/nonexistent/agentprobe.yaml", Required: true})
	assert.Error(t, err)

	_, err = Load(LoadOptions{ConfigPath: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestLoad_BadEnvValue(t *testing.T) {
	clearStackEnv(t)
	t.Setenv(EnvWorkerIndex, "first")

	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvWorkerIndex)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearStackEnv(t)
	t.Setenv(EnvBackendPort, "70000")
	t.Setenv(EnvUnifiedBaseURL, "localhost:8080")

	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.port")
	assert.Contains(t, err.Error(), "proxy.base_url")
}

func TestLoad_CustomEnvLoader(t *testing.T) {
	clearStackEnv(t)
	l := env.NewLoader()
	envPath := writeFile(t, ".env", "AGENTPROBE_HEADLESS=false\nAGENTPROBE_TIMEOUT=45s\nAGENTPROBE_BACKEND_TOKEN=tok-1234567\n")

	cfg, err := Load(LoadOptions{EnvFile: envPath, Env: l})
	require.NoError(t, err)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Run.Timeout)
	assert.Equal(t, "tok-1234567", cfg.Backend.Token)
	assert.Equal(t, []string{"tok-1234567"}, l.SecretValues())
}

func TestConfig_TargetAndScenarioConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Port = 8123
	cfg.Backend.WebSocketPath = "events"
	cfg.Proxy.BaseURL = "http://proxy:8080/"
	cfg.Worker.Index = 2

	tg := cfg.Target()
	assert.Equal(t, "http://localhost:8123", tg.BackendURL)
	assert.Equal(t, "ws://localhost:8123/events", tg.WebSocketURL)
	assert.Equal(t, "http://proxy:8080", tg.ProxyURL)
	assert.Equal(t, "http://proxy:8080/chat", tg.ChatURL())

	sc := cfg.ScenarioConfig("navigation")
	assert.Equal(t, 2, sc.WorkerIndex)
	assert.Equal(t, tg, sc.Target)
	assert.Equal(t, cfg.Run.Timeout, sc.Timeout)
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))

	bad := DefaultConfig()
	bad.Worker.Parallel = 0
	bad.Readiness.MaxAttempts = 0
	bad.Log.Level = "loud"
	err := Validate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker.parallel")
	assert.Contains(t, err.Error(), "readiness.max_attempts")
	assert.Contains(t, err.Error(), "log.level")
}
