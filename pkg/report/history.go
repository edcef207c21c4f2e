package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// Overridable in tests.
var jsonMarshal = json.Marshal

// HistoricalEntry represents a single scenario run in the
// historical log.
type HistoricalEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	RunID            string    `json:"run_id,omitempty"`
	ScenarioID       string    `json:"scenario_id"`
	Status           string    `json:"status"`
	WorkerIndex      int       `json:"worker_index"`
	Duration         string    `json:"duration"`
	AssertionsPassed int       `json:"assertions_passed"`
	AssertionsTotal  int       `json:"assertions_total"`
	ResultsPath      string    `json:"results_path"`
}

// AppendToHistory adds an entry to the historical log stored
// at historyPath. Each entry is a single JSON line.
func AppendToHistory(
	historyPath string,
	runID string,
	result *scenario.Result,
) error {
	entry := HistoricalEntry{
		Timestamp:        result.EndTime,
		RunID:            runID,
		ScenarioID:       string(result.ScenarioID),
		Status:           result.Status,
		WorkerIndex:      result.WorkerIndex,
		Duration:         result.Duration.String(),
		AssertionsPassed: countPassed(result.Assertions),
		AssertionsTotal:  len(result.Assertions),
		ResultsPath:      resultsPath(result),
	}

	data, err := jsonMarshal(entry)
	if err != nil {
		return fmt.Errorf(
			"failed to marshal history entry: %w", err,
		)
	}

	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}

// ReadHistory returns the last limit entries of the log, oldest
// first. A limit <= 0 returns everything. A missing file is an
// empty history. Malformed lines are skipped.
func ReadHistory(historyPath string, limit int) ([]HistoricalEntry, error) {
	file, err := os.Open(historyPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []HistoricalEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e HistoricalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
