package infra

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"digital.vasic.agentprobe/pkg/logging"
)

// SignalCleanupTimeout bounds the cleanup fired by a signal.
const SignalCleanupTimeout = 5 * time.Second

// SignalOption configures HandleSignals.
type SignalOption func(*signalConfig)

type signalConfig struct {
	exit func(code int)
	sigs []os.Signal
}

// ExitOnSignal makes the handler terminate the process after the
// cleanup finishes or SignalCleanupTimeout passes. exit receives
// 128 plus the signal number; pass os.Exit.
func ExitOnSignal(exit func(code int)) SignalOption {
	return func(c *signalConfig) { c.exit = exit }
}

func withSignals(sigs ...os.Signal) SignalOption {
	return func(c *signalConfig) { c.sigs = sigs }
}

// HandleSignals returns a context cancelled on SIGINT or
// SIGTERM. On the first signal the context is cancelled and
// cleanup starts with a short deadline. Without ExitOnSignal the
// caller is expected to wind down on the cancelled context and
// the cleanup runs in the background; with it the handler waits
// for the cleanup and then exits the process. Call stop to
// unregister.
func HandleSignals(
	ctx context.Context,
	cleanup *Cleanup,
	logger logging.Logger,
	opts ...SignalOption,
) (context.Context, func()) {
	cfg := signalConfig{sigs: []os.Signal{syscall.SIGINT, syscall.SIGTERM}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, cfg.sigs...)

	runCleanup := func() {
		if cleanup == nil {
			return
		}
		cctx, ccancel := context.WithTimeout(
			context.WithoutCancel(ctx), SignalCleanupTimeout,
		)
		defer ccancel()
		if err := cleanup.Run(cctx); err != nil {
			logger.Warn("cleanup after signal", logging.ErrorField(err))
		}
	}

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn("received signal, cleaning up",
				logging.StringField("signal", sig.String()),
			)
			cancel()
			if cfg.exit == nil {
				go runCleanup()
				return
			}
			runCleanup()
			cfg.exit(exitCode(sig))
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
			cancel()
		})
	}
}

func exitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
