// Package wsprobe listens on the backend's WebSocket event stream
// and lets scenarios wait for frames. Frames that are not JSON
// are counted and dropped.
package wsprobe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digital.vasic.agentprobe/pkg/logging"
)

// ErrClosed is returned by waits once the connection has ended.
var ErrClosed = errors.New("websocket listener closed")

// Option configures Dial.
type Option func(*options)

type options struct {
	header           http.Header
	handshakeTimeout time.Duration
	logger           logging.Logger
	maxEvents        int
}

// WithHeader adds handshake headers (for example Authorization).
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

// WithLogger logs connection lifecycle and dropped frames.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxEvents caps retained events; older ones are discarded.
func WithMaxEvents(n int) Option {
	return func(o *options) { o.maxEvents = n }
}

// Listener reads frames in the background and keeps them for
// inspection. All methods are safe for concurrent use.
type Listener struct {
	url    string
	conn   *websocket.Conn
	logger logging.Logger
	max    int

	mu      sync.Mutex
	events  []Event
	total   int
	dropped int
	changed chan struct{}
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to url and starts the read loop.
func Dial(ctx context.Context, url string, opts ...Option) (*Listener, error) {
	o := options{
		handshakeTimeout: 10 * time.Second,
		logger:           logging.NullLogger{},
		maxEvents:        10000,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NullLogger{}
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: o.handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, o.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: HTTP %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	l := &Listener{
		url:     url,
		conn:    conn,
		logger:  o.logger,
		max:     o.maxEvents,
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
	l.logger.Debug("websocket connected", logging.StringField("url", url))
	go l.readLoop()
	return l, nil
}

func (l *Listener) readLoop() {
	defer close(l.done)
	for {
		_, frame, err := l.conn.ReadMessage()
		if err != nil {
			l.mu.Lock()
			l.err = err
			l.signalLocked()
			l.mu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Debug("websocket read ended",
					logging.StringField("url", l.url),
					logging.ErrorField(err),
				)
			}
			return
		}

		ev, ok := ParseEvent(frame)
		l.mu.Lock()
		if !ok {
			l.dropped++
			l.mu.Unlock()
			l.logger.Debug("non-JSON frame dropped", logging.IntField("bytes", len(frame)))
			continue
		}
		l.events = append(l.events, ev)
		l.total++
		if l.max > 0 && len(l.events) > l.max {
			l.events = l.events[len(l.events)-l.max:]
		}
		l.signalLocked()
		l.mu.Unlock()
	}
}

// signalLocked wakes every waiter. Callers hold l.mu.
func (l *Listener) signalLocked() {
	close(l.changed)
	l.changed = make(chan struct{})
}

// Events returns a copy of the retained events in arrival order.
func (l *Listener) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Count returns how many JSON events have arrived in total.
func (l *Listener) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Dropped returns how many non-JSON frames were discarded.
func (l *Listener) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Err returns the error that ended the read loop, if any.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// WaitFor blocks until an event satisfying match has arrived
// (including events already received), ctx ends, or the connection
// closes.
func (l *Listener) WaitFor(ctx context.Context, match func(Event) bool) (Event, error) {
	next := 0 // absolute event index
	for {
		l.mu.Lock()
		base := l.total - len(l.events)
		if next < base {
			next = base
		}
		for ; next < l.total; next++ {
			if ev := l.events[next-base]; match(ev) {
				l.mu.Unlock()
				return ev, nil
			}
		}
		wake := l.changed
		closed := l.err != nil
		l.mu.Unlock()

		if closed {
			return Event{}, ErrClosed
		}
		select {
		case <-ctx.Done():
			return Event{}, fmt.Errorf("wait for websocket event: %w", ctx.Err())
		case <-wake:
		}
	}
}

// WaitForType waits for the first event of the given type.
func (l *Listener) WaitForType(ctx context.Context, eventType string) (Event, error) {
	return l.WaitFor(ctx, func(e Event) bool { return e.Type == eventType })
}

// WaitForCount waits until at least n events have arrived and
// returns the retained events.
func (l *Listener) WaitForCount(ctx context.Context, n int) ([]Event, error) {
	for {
		l.mu.Lock()
		total := l.total
		wake := l.changed
		closed := l.err != nil
		l.mu.Unlock()

		if total >= n {
			return l.Events(), nil
		}
		if closed {
			return l.Events(), fmt.Errorf("got %d of %d events: %w", total, n, ErrClosed)
		}
		select {
		case <-ctx.Done():
			return l.Events(), fmt.Errorf("got %d of %d events: %w", total, n, ctx.Err())
		case <-wake:
		}
	}
}

// Close sends a close frame, closes the connection and waits for
// the read loop to exit. Safe to call multiple times.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = l.conn.Close()
		<-l.done
	})
	return err
}
