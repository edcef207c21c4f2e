// Package browser drives a headless Chrome through go-rod for the
// dashboard and chat flows. Every element action is bounded by the
// configured timeout and by the caller's context.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"digital.vasic.agentprobe/pkg/logging"
)

// ErrNoPage is returned by page actions before Navigate.
var ErrNoPage = errors.New("no page open, call Navigate first")

// Config configures Chrome launch options.
type Config struct {
	Headless   bool          // run without a window
	Bin        string        // Chrome binary; empty lets rod find or download one
	Timeout    time.Duration // per-action timeout
	SlowMotion time.Duration // delay between input actions, for debugging
	// ConsoleLog receives page console messages, one per line.
	ConsoleLog io.Writer
	Logger     logging.Logger
}

// DefaultConfig returns sensible defaults for the suite.
func DefaultConfig() Config {
	return Config{
		Headless: true,
		Timeout:  15 * time.Second,
	}
}

// Client wraps one Chrome instance and its current page.
type Client struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
	console  io.Writer
	logger   logging.Logger

	mu   sync.Mutex
	page *rod.Page
}

// NewClient launches Chrome with container-friendly flags and
// connects to it.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NullLogger{}
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	b := rod.New().ControlURL(url)
	if cfg.SlowMotion > 0 {
		b = b.SlowMotion(cfg.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	cfg.Logger.Debug("browser launched",
		logging.BoolField("headless", cfg.Headless),
		logging.StringField("control_url", url),
	)
	return &Client{
		launcher: l,
		browser:  b,
		timeout:  cfg.Timeout,
		console:  cfg.ConsoleLog,
		logger:   cfg.Logger,
	}, nil
}

// Timeout returns the per-action timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// current returns the page bound to ctx and the action timeout.
func (c *Client) current(ctx context.Context) (*rod.Page, error) {
	c.mu.Lock()
	p := c.page
	c.mu.Unlock()
	if p == nil {
		return nil, ErrNoPage
	}
	return p.Context(ctx).Timeout(c.timeout), nil
}

// Navigate opens url in a fresh page and waits for the load event.
// The previous page, if any, is closed.
func (c *Client) Navigate(ctx context.Context, url string) error {
	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	if c.console != nil {
		c.captureConsole(page)
	}

	c.mu.Lock()
	prev := c.page
	c.page = page
	c.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	p := page.Context(ctx).Timeout(c.timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	c.logger.Debug("navigated", logging.StringField("url", url))
	return nil
}

func (c *Client) captureConsole(page *rod.Page) {
	go page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		parts := make([]string, 0, len(e.Args))
		for _, a := range e.Args {
			if a.Description != "" {
				parts = append(parts, a.Description)
				continue
			}
			parts = append(parts, a.Value.String())
		}
		fmt.Fprintf(c.console, "%s [%s] %s\n",
			time.Now().UTC().Format(time.RFC3339), e.Type, strings.Join(parts, " "))
	})()
}

// WaitStable waits until the DOM stops changing.
func (c *Client) WaitStable(ctx context.Context) error {
	p, err := c.current(ctx)
	if err != nil {
		return err
	}
	if err := p.WaitStable(time.Second); err != nil {
		return fmt.Errorf("wait stable: %w", err)
	}
	return nil
}

func (c *Client) element(ctx context.Context, selector string) (*rod.Element, error) {
	p, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	el, err := p.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	return el, nil
}

// WaitVisible waits until selector matches a visible element.
func (c *Client) WaitVisible(ctx context.Context, selector string) error {
	el, err := c.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %q: %w", selector, err)
	}
	return nil
}

// Click left-clicks the first element matching selector.
func (c *Client) Click(ctx context.Context, selector string) error {
	el, err := c.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// ClickText clicks the first element matching selector whose text
// matches the JavaScript regular expression pattern.
func (c *Client) ClickText(ctx context.Context, selector, pattern string) error {
	p, err := c.current(ctx)
	if err != nil {
		return err
	}
	el, err := p.ElementR(selector, pattern)
	if err != nil {
		return fmt.Errorf("find %q /%s/: %w", selector, pattern, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q /%s/: %w", selector, pattern, err)
	}
	return nil
}

// Fill replaces the value of an input or textarea.
func (c *Client) Fill(ctx context.Context, selector, text string) error {
	el, err := c.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

// Text returns the visible text of the first match.
func (c *Client) Text(ctx context.Context, selector string) (string, error) {
	el, err := c.element(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("text %q: %w", selector, err)
	}
	return text, nil
}

// Exists reports whether selector currently matches anything. It
// does not wait.
func (c *Client) Exists(ctx context.Context, selector string) (bool, error) {
	p, err := c.current(ctx)
	if err != nil {
		return false, err
	}
	has, _, err := p.Has(selector)
	if err != nil {
		return false, fmt.Errorf("query %q: %w", selector, err)
	}
	return has, nil
}

// Eval runs a JavaScript function expression such as
// "() => document.title" and returns its JSON value.
func (c *Client) Eval(ctx context.Context, js string) (any, error) {
	p, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	res, err := p.Eval(js)
	if err != nil {
		return nil, fmt.Errorf("eval failed: %w", err)
	}
	return res.Value.Val(), nil
}

// Screenshot writes a full-page PNG to path.
func (c *Client) Screenshot(ctx context.Context, path string) error {
	p, err := c.current(ctx)
	if err != nil {
		return err
	}
	data, err := p.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// CurrentURL returns the URL of the current page.
func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	p, err := c.current(ctx)
	if err != nil {
		return "", err
	}
	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// Close shuts the browser down and removes the launcher's temporary
// profile. Always call it (via defer) to avoid orphaned Chrome
// processes.
func (c *Client) Close() error {
	c.mu.Lock()
	c.page = nil
	c.mu.Unlock()

	var err error
	if c.browser != nil {
		err = c.browser.Close()
	}
	if c.launcher != nil {
		c.launcher.Kill()
		c.launcher.Cleanup()
	}
	return err
}
