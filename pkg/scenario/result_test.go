package scenario

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_AllPassedAndFailed(t *testing.T) {
	r := &Result{Assertions: []AssertionResult{
		{Target: "a", Passed: true},
		{Target: "b", Passed: false},
	}}
	assert.False(t, r.AllPassed())
	failed := r.FailedAssertions()
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Target)

	assert.True(t, (&Result{}).AllPassed())
}

func TestResult_IsFinal(t *testing.T) {
	for _, s := range []string{
		StatusPassed, StatusFailed, StatusSkipped,
		StatusTimedOut, StatusStuck, StatusError,
	} {
		assert.True(t, (&Result{Status: s}).IsFinal(), s)
	}
	assert.False(t, (&Result{Status: StatusPending}).IsFinal())
	assert.False(t, (&Result{Status: StatusRunning}).IsFinal())
}

func TestResult_Metric(t *testing.T) {
	r := &Result{}
	r.Metric("create_latency", 42, "ms")
	assert.Equal(t, MetricValue{Name: "create_latency", Value: 42, Unit: "ms"}, r.Metrics["create_latency"])
}

func TestDefinition_IsEnabled(t *testing.T) {
	off := false
	assert.True(t, (&Definition{}).IsEnabled())
	assert.False(t, (&Definition{Enabled: &off}).IsEnabled())
}

func TestProgressReporter_LastUpdateAndClose(t *testing.T) {
	p := NewProgressReporter()
	assert.Nil(t, p.LastUpdate())

	p.ReportProgress("frame", map[string]any{"count": 1})
	last := p.LastUpdate()
	require.NotNil(t, last)
	assert.Equal(t, "frame", last.Message)

	p.Close()
	p.Close()
	p.ReportProgress("after close", nil)
	assert.Equal(t, "after close", p.LastUpdate().Message)
}

func TestProgressReporter_DropsWhenFull(t *testing.T) {
	p := NewProgressReporter()
	defer p.Close()
	for i := 0; i < 200; i++ {
		p.ReportProgress("tick", nil)
	}
	assert.Len(t, p.Channel(), 64)
}

func TestProgressReporter_ConcurrentReportAndClose(t *testing.T) {
	p := NewProgressReporter()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.ReportProgress("tick", nil)
			}
		}()
	}
	time.Sleep(time.Millisecond)
	p.Close()
	wg.Wait()
}
