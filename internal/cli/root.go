// Package cli implements the agentprobe command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.agentprobe/pkg/config"
	"digital.vasic.agentprobe/pkg/env"
	"digital.vasic.agentprobe/pkg/logging"
)

var (
	flagConfig      string
	flagEnvFile     string
	flagVerbose     bool
	flagBackendPort int
	flagProxyURL    string
	flagWorker      int
	flagLogLevel    string
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute to a process exit
// code: 0 for nil, the carried code for *ExitError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "agentprobe",
	Short: "End-to-end probe for the agent dashboard stack",
	Long: `agentprobe drives a running agent dashboard stack: it waits for the
backend to become ready, exercises the API, the dashboard and chat
frontends through a headless browser, and listens on the backend
WebSocket for events.

Settings come from defaults, an optional YAML file (--config), a .env
file (--env-file), the environment (BACKEND_PORT, UNIFIED_BASE_URL,
TEST_WORKER_INDEX, ...) and flags, in increasing priority.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addPersistentFlags(rootCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	pf.StringVar(&flagEnvFile, "env-file", ".env", ".env file to load (missing file is ignored)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	pf.IntVar(&flagBackendPort, "backend-port", 0, "backend port (overrides BACKEND_PORT)")
	pf.StringVar(&flagProxyURL, "proxy-url", "", "unified proxy base URL (overrides UNIFIED_BASE_URL)")
	pf.IntVar(&flagWorker, "worker", 0, "worker index (overrides TEST_WORKER_INDEX)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error")
}

// Execute runs the root command with os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// flagOverrides collects the flags the user actually set.
func flagOverrides(cmd *cobra.Command) map[string]any {
	o := make(map[string]any)
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("backend-port") {
		o["backend.port"] = flagBackendPort
	}
	if changed("proxy-url") {
		o["proxy.base_url"] = flagProxyURL
	}
	if changed("worker") {
		o["worker.index"] = flagWorker
	}
	if changed("log-level") {
		o["log.level"] = flagLogLevel
	}
	if changed("verbose") {
		o["run.verbose"] = flagVerbose
	}
	return o
}

// loadConfig resolves the effective configuration for cmd.
func loadConfig(cmd *cobra.Command, extra map[string]any) (config.Config, *env.DefaultLoader, error) {
	loader := env.NewLoader()
	overrides := flagOverrides(cmd)
	for k, v := range extra {
		overrides[k] = v
	}
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath:    flagConfig,
		Required:      flagConfig != "",
		EnvFile:       flagEnvFile,
		Env:           loader,
		FlagOverrides: overrides,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, loader, nil
}

// newConsoleLogger builds the console logger, fanned out to any
// extra sinks, with secrets from the environment and the backend
// token masked.
func newConsoleLogger(cmd *cobra.Command, cfg config.Config, loader *env.DefaultLoader, extra ...logging.Logger) logging.Logger {
	verbose := cfg.Run.Verbose || strings.EqualFold(cfg.Log.Level, "debug")
	var out logging.Logger = logging.NewConsoleLoggerWithOptions(logging.ConsoleOptions{
		Output:  cmd.ErrOrStderr(),
		Prefix:  fmt.Sprintf("w%d", cfg.Worker.Index),
		Verbose: verbose,
	})
	if len(extra) > 0 {
		out = logging.NewMultiLogger(append([]logging.Logger{out}, extra...)...)
	}
	secrets := loader.SecretValues()
	if cfg.Backend.Token != "" {
		secrets = append(secrets, cfg.Backend.Token)
	}
	return logging.NewRedactingLogger(out, secrets...)
}

// stdout is the command's output stream.
func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
