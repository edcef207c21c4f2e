// Package suite holds the end-to-end flows run against the agent
// dashboard stack: API health, agent creation over HTTP and through
// the dashboard, navigation through the unified proxy, WebSocket
// event delivery and the chat frontend.
package suite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"digital.vasic.agentprobe/pkg/browser"
	"digital.vasic.agentprobe/pkg/httpclient"
	"digital.vasic.agentprobe/pkg/logging"
	"digital.vasic.agentprobe/pkg/registry"
	"digital.vasic.agentprobe/pkg/scenario"
)

// Scenario IDs.
const (
	IDAPIHealth       scenario.ID = "api-health"
	IDAgentsAPICreate scenario.ID = "agents-api-create"
	IDNavigation      scenario.ID = "navigation"
	IDAgentsUICreate  scenario.ID = "agents-ui-create"
	IDWebSocketEvents scenario.ID = "websocket-events"
	IDChatOpen        scenario.ID = "chat-open"
)

// DefaultSettleTimeout bounds waits for asynchronous effects: an
// event frame after a create, or a new row in the agents list.
const DefaultSettleTimeout = 10 * time.Second

// Page is the browser surface the UI flows drive. *browser.Client
// satisfies it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitStable(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	ClickText(ctx context.Context, selector, pattern string) error
	Fill(ctx context.Context, selector, text string) error
	Text(ctx context.Context, selector string) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)
	Screenshot(ctx context.Context, path string) error
	CurrentURL(ctx context.Context) (string, error)
	Close() error
}

var _ Page = (*browser.Client)(nil)

// PageFactory opens a fresh browser page.
type PageFactory func(ctx context.Context) (Page, error)

// Selectors locate the landmarks and controls of the dashboard and
// chat frontends. Comma-separated lists match the first element
// found.
type Selectors struct {
	DashboardReady   string `yaml:"dashboard_ready" json:"dashboard_ready"`
	AgentsRoute      string `yaml:"agents_route" json:"agents_route"`
	AgentsReady      string `yaml:"agents_ready" json:"agents_ready"`
	CreateButton     string `yaml:"create_button" json:"create_button"`
	CreateButtonText string `yaml:"create_button_text" json:"create_button_text"`
	NameInput        string `yaml:"name_input" json:"name_input"`
	SystemInput      string `yaml:"system_input" json:"system_input"`
	TaskInput        string `yaml:"task_input" json:"task_input"`
	ModelInput       string `yaml:"model_input" json:"model_input"`
	SubmitButton     string `yaml:"submit_button" json:"submit_button"`
	AgentList        string `yaml:"agent_list" json:"agent_list"`
	ChatReady        string `yaml:"chat_ready" json:"chat_ready"`
	ChatInput        string `yaml:"chat_input" json:"chat_input"`
}

// DefaultSelectors returns selectors that match common markup for
// the dashboard and chat frontends.
func DefaultSelectors() Selectors {
	return Selectors{
		DashboardReady:   "#root, #app, main",
		AgentsRoute:      "/agents",
		AgentsReady:      "main, #root",
		CreateButton:     "button, a",
		CreateButtonText: `(?i)(new|create|add)\s*agent`,
		NameInput:        `input[name="name"], #name`,
		SystemInput:      `textarea[name="system_instructions"]`,
		TaskInput:        `textarea[name="task_instructions"]`,
		ModelInput:       `input[name="model"]`,
		SubmitButton:     `button[type="submit"]`,
		AgentList:        "main, body",
		ChatReady:        "main, #root, body",
		ChatInput:        `textarea, input[type="text"], [contenteditable="true"]`,
	}
}

// merge fills empty fields of s from d.
func (s Selectors) merge(d Selectors) Selectors {
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Selectors{
		DashboardReady:   pick(s.DashboardReady, d.DashboardReady),
		AgentsRoute:      pick(s.AgentsRoute, d.AgentsRoute),
		AgentsReady:      pick(s.AgentsReady, d.AgentsReady),
		CreateButton:     pick(s.CreateButton, d.CreateButton),
		CreateButtonText: pick(s.CreateButtonText, d.CreateButtonText),
		NameInput:        pick(s.NameInput, d.NameInput),
		SystemInput:      pick(s.SystemInput, d.SystemInput),
		TaskInput:        pick(s.TaskInput, d.TaskInput),
		ModelInput:       pick(s.ModelInput, d.ModelInput),
		SubmitButton:     pick(s.SubmitButton, d.SubmitButton),
		AgentList:        pick(s.AgentList, d.AgentList),
		ChatReady:        pick(s.ChatReady, d.ChatReady),
		ChatInput:        pick(s.ChatInput, d.ChatInput),
	}
}

// Deps are the collaborators shared by every scenario in the suite.
type Deps struct {
	// Logger receives API request/response and fixture logs.
	Logger logging.Logger

	// Token is sent as a bearer token to the backend, when set.
	Token string

	// HTTPClient replaces the default client for API calls.
	HTTPClient *http.Client

	// Browser configures pages opened by the default PageFactory.
	Browser browser.Config

	// NewPage opens browser pages. Nil launches Chrome through
	// browser.NewClient with the Browser config.
	NewPage PageFactory

	Selectors Selectors

	// SettleTimeout defaults to DefaultSettleTimeout.
	SettleTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logging.NullLogger{}
	}
	if d.Browser == (browser.Config{}) {
		d.Browser = browser.DefaultConfig()
	}
	if d.Browser.Timeout <= 0 {
		d.Browser.Timeout = browser.DefaultConfig().Timeout
	}
	if d.Browser.Logger == nil {
		d.Browser.Logger = d.Logger
	}
	if d.NewPage == nil {
		cfg := d.Browser
		d.NewPage = func(context.Context) (Page, error) {
			c, err := browser.NewClient(cfg)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	d.Selectors = d.Selectors.merge(DefaultSelectors())
	if d.SettleTimeout <= 0 {
		d.SettleTimeout = DefaultSettleTimeout
	}
	return d
}

// apiClient builds a backend client for baseURL.
func (d Deps) apiClient(baseURL string) *httpclient.APIClient {
	opts := []httpclient.ClientOption{httpclient.WithLogger(d.Logger)}
	if d.Token != "" {
		opts = append(opts, httpclient.WithToken(d.Token))
	}
	if d.HTTPClient != nil {
		opts = append(opts, httpclient.WithHTTPClient(d.HTTPClient))
	}
	return httpclient.NewAPIClient(baseURL, opts...)
}

// Scenarios returns the default suite in dependency order.
func Scenarios(deps Deps) []scenario.Scenario {
	deps = deps.withDefaults()
	return []scenario.Scenario{
		NewAPIHealth(deps),
		NewAgentsAPICreate(deps),
		NewNavigation(deps),
		NewAgentsUICreate(deps),
		NewWebSocketEvents(deps),
		NewChatOpen(deps),
	}
}

// Register installs the default suite into reg.
func Register(reg registry.Registry, deps Deps) error {
	for _, s := range Scenarios(deps) {
		if err := reg.Register(s); err != nil {
			return fmt.Errorf("register %s: %w", s.ID(), err)
		}
	}
	return nil
}
