package suite

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

const pollInterval = 200 * time.Millisecond

var errSettleTimeout = errors.New("condition not met before timeout")

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// poll calls fn until it reports true, fn errors, or timeout passes.
func poll(
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (bool, error),
) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := fn(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errSettleTimeout
		case <-ticker.C:
		}
	}
}

// agentsURL is the dashboard agents page under the proxy.
func agentsURL(t scenario.Target, route string) string {
	return t.ProxyPath(path.Join("/", t.DashboardPath, route))
}

// captureFailure saves a screenshot for a failed UI flow and
// attaches it to the result. Errors are logged, never returned.
func captureFailure(
	ctx context.Context,
	b *scenario.BaseScenario,
	page Page,
	result *scenario.Result,
) {
	if page == nil || result.Status == scenario.StatusPassed {
		return
	}
	p := b.ArtifactPath(strings.ReplaceAll(string(b.ID()), "/", "_") + "-failure.png")
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := page.Screenshot(shotCtx, p); err != nil {
		b.LogError("screenshot failed", "error", err)
		return
	}
	result.Artifacts = append(result.Artifacts, p)
}
