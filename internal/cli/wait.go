package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"digital.vasic.agentprobe/pkg/config"
	"digital.vasic.agentprobe/pkg/infra"
	"digital.vasic.agentprobe/pkg/logging"
	"digital.vasic.agentprobe/pkg/readiness"
)

var flagWithProxy bool

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Block until the stack is ready",
	Long: `Poll the backend health endpoint until it answers 200 or the
attempt budget runs out. With --with-proxy the unified proxy's
dashboard route is gated as well.

Exit code 0 means ready; 2 means the gate timed out.`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

func init() {
	addWaitFlags(waitCmd)
	rootCmd.AddCommand(waitCmd)
}

func addWaitFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagWithProxy, "with-proxy", false, "also wait for the unified proxy")
}

// backendGate builds the readiness gate for the backend API.
func backendGate(cfg config.Config, logger logging.Logger) *readiness.Gate {
	return readiness.New(cfg.BackendURL(), cfg.Readiness.MaxAttempts,
		readiness.WithHealthPath(cfg.Backend.HealthPath),
		readiness.WithInterval(cfg.Readiness.Interval),
		readiness.WithRequestTimeout(cfg.Readiness.RequestTimeout),
		readiness.WithLogger(logger),
	)
}

// proxyGate builds the readiness gate for the proxy's dashboard
// route.
func proxyGate(cfg config.Config, logger logging.Logger) *readiness.Gate {
	return readiness.New(cfg.Target().ProxyURL, cfg.Readiness.MaxAttempts,
		readiness.WithHealthPath(cfg.Proxy.DashboardPath),
		readiness.WithInterval(cfg.Readiness.Interval),
		readiness.WithRequestTimeout(cfg.Readiness.RequestTimeout),
		readiness.WithLogger(logger),
	)
}

func runWait(cmd *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	logger := newConsoleLogger(cmd, cfg, loader)
	defer logger.Close()

	services := map[string]infra.Waiter{
		infra.ServiceBackend: backendGate(cfg, logger),
	}
	if flagWithProxy {
		services[infra.ServiceProxy] = proxyGate(cfg, logger)
	}

	cleanup := infra.NewCleanup(logger)
	ctx, stop := infra.HandleSignals(cmd.Context(), cleanup, logger)
	defer stop()

	stack := infra.NewSharedBackend(services, cleanup, logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), infra.SignalCleanupTimeout)
		defer cancel()
		_ = stack.Shutdown(sctx)
	}()

	start := time.Now()
	for _, name := range []string{infra.ServiceBackend, infra.ServiceProxy} {
		if _, ok := services[name]; !ok {
			continue
		}
		if err := stack.EnsureRunning(ctx, name); err != nil {
			if readiness.IsTimeout(err) {
				return &ExitError{Code: 2, Err: err}
			}
			return err
		}
	}

	logger.Info("stack ready", logging.DurationField("elapsed", time.Since(start)))
	fmt.Fprintln(stdout(cmd), "ready")
	return nil
}
