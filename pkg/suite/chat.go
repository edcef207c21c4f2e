package suite

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"digital.vasic.agentprobe/pkg/scenario"
)

// ChatOpen opens the chat frontend and looks for the message input.
// A proxy that does not serve the chat route skips the scenario.
type ChatOpen struct {
	scenario.BaseScenario
	deps Deps
}

// NewChatOpen creates the chat-open scenario.
func NewChatOpen(deps Deps) *ChatOpen {
	return &ChatOpen{
		BaseScenario: scenario.NewBaseScenario(
			IDChatOpen,
			"Chat frontend",
			"Chat frontend loads and shows a message input",
			scenario.CategoryChat,
			nil,
		),
		deps: deps.withDefaults(),
	}
}

func (s *ChatOpen) Validate(ctx context.Context) error {
	if err := s.BaseScenario.Validate(ctx); err != nil {
		return err
	}
	return s.RequireTarget("proxy")
}

func (s *ChatOpen) Execute(ctx context.Context) (*scenario.Result, error) {
	start := time.Now()
	t := s.Target()
	chatURL := t.ChatURL()

	code, err := s.deps.apiClient(t.ProxyURL).Health(ctx, t.ChatPath)
	if err != nil {
		return s.CreateResult(
			scenario.StatusFailed, start, nil, nil,
			map[string]string{"chat_url": chatURL},
			fmt.Sprintf("chat frontend unreachable: %v", err),
		), nil
	}
	if code == http.StatusNotFound {
		s.LogInfo("chat frontend not served", "url", chatURL)
		return s.CreateResult(
			scenario.StatusSkipped, start, nil, nil,
			map[string]string{"chat_url": chatURL, "status": strconv.Itoa(code)},
			"chat frontend not served",
		), nil
	}

	page, err := s.deps.NewPage(ctx)
	if err != nil {
		return s.CreateResult(
			scenario.StatusError, start, nil, nil, nil,
			fmt.Sprintf("open browser: %v", err),
		), nil
	}
	defer page.Close()

	sel := s.deps.Selectors
	loadStart := time.Now()
	var pageErr error
	if pageErr = page.Navigate(ctx, chatURL); pageErr == nil {
		pageErr = page.WaitVisible(ctx, sel.ChatReady)
	}
	loadTime := time.Since(loadStart)
	s.ReportProgress("chat loaded", map[string]any{"ms": loadTime.Milliseconds()})

	found := false
	if pageErr == nil {
		found, pageErr = page.Exists(ctx, sel.ChatInput)
	}

	values := map[string]any{
		"status":      code,
		"input_found": found,
	}
	assertions := s.EvaluateAssertions(s.Assertions(
		scenario.AssertionDef{Type: "status_2xx", Target: "status"},
		scenario.AssertionDef{Type: "equals", Target: "input_found", Value: true},
	), values)

	errMsg := ""
	if pageErr != nil {
		errMsg = pageErr.Error()
	}
	result := s.CreateResult(
		scenario.StatusFromAssertions(assertions), start, assertions, nil,
		map[string]string{"chat_url": chatURL, "status": strconv.Itoa(code)},
		errMsg,
	)
	result.Metric("load_ms", millis(loadTime), "ms")
	captureFailure(ctx, &s.BaseScenario, page, result)
	return result, nil
}
