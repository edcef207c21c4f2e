package runner

import (
	"context"
	"fmt"
	"sync"

	"digital.vasic.agentprobe/pkg/scenario"
)

// runParallel executes the selected scenarios and their
// dependencies in waves. Every scenario in a wave has all its
// dependencies in earlier waves. Within a wave at most
// maxWorkers scenarios run at once, each on a distinct worker
// slot. Results are returned in dependency order.
func runParallel(
	ctx context.Context,
	r *DefaultRunner,
	ids []scenario.ID,
	config *scenario.Config,
	maxWorkers int,
) ([]*scenario.Result, error) {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	ordered, err := r.registry.Select(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to select scenarios: %w", err)
	}

	slots := make(chan int, maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		slots <- i
	}

	position := make(map[scenario.ID]int, len(ordered))
	for i, s := range ordered {
		position[s.ID()] = i
	}
	results := make([]*scenario.Result, len(ordered))
	deps := newDepTracker()

	for _, wave := range dependencyWaves(ordered) {
		if err := ctx.Err(); err != nil {
			return compact(results), err
		}

		var wg sync.WaitGroup
		for _, s := range wave {
			var slot int
			select {
			case slot = <-slots:
			case <-ctx.Done():
				wg.Wait()
				return compact(results), ctx.Err()
			}

			cfg := r.scenarioConfig(config, s.ID(), deps.passedDirs())
			cfg.WorkerIndex = config.WorkerIndex*maxWorkers + slot

			wg.Add(1)
			go func(s scenario.Scenario, cfg *scenario.Config, slot int) {
				defer wg.Done()
				defer func() { slots <- slot }()

				result := r.executeOrSkip(ctx, s, cfg, deps)
				results[position[s.ID()]] = result
				deps.record(result, cfg.ResultsDir)
			}(s, cfg, slot)
		}
		wg.Wait()
	}

	return results, nil
}

// dependencyWaves groups an ordered slice into levels: a
// scenario's level is one more than its deepest dependency.
// Dependencies outside the slice are ignored.
func dependencyWaves(ordered []scenario.Scenario) [][]scenario.Scenario {
	level := make(map[scenario.ID]int, len(ordered))
	var waves [][]scenario.Scenario
	for _, s := range ordered {
		lvl := 0
		for _, dep := range s.Dependencies() {
			if l, ok := level[dep]; ok && l+1 > lvl {
				lvl = l + 1
			}
		}
		level[s.ID()] = lvl
		for len(waves) <= lvl {
			waves = append(waves, nil)
		}
		waves[lvl] = append(waves[lvl], s)
	}
	return waves
}

func compact(results []*scenario.Result) []*scenario.Result {
	out := make([]*scenario.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
