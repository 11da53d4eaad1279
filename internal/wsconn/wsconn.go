// Package wsconn provides a production-grade WebSocket client with reconnection.
package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // used in trace/log attribution only
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	PongTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64 // bytes; 0 = library default (32KiB)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// MessageHandler is invoked for every inbound text/binary message.
type MessageHandler func(ctx context.Context, msg []byte)

// StateChangeHandler is invoked on every state transition, err is the cause
// of the transition when it follows a failed dial or a dropped connection,
// nil otherwise.
type StateChangeHandler func(state State, err error)

// Client is a production-grade WebSocket client with exponential-backoff
// reconnection, built on github.com/coder/websocket.
type Client struct {
	config Config

	conn    *websocket.Conn
	connMu  sync.RWMutex
	writeMu sync.Mutex

	state   State
	stateMu sync.RWMutex

	onMessage  MessageHandler
	onState    StateChangeHandler
	handlersMu sync.RWMutex

	cancel context.CancelFunc
	closed atomic.Bool
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("wsconn: URL is required")
	}
	return &Client{
		config: config,
		state:  StateDisconnected,
	}, nil
}

// OnMessage registers the handler invoked for every inbound message.
func (c *Client) OnMessage(handler MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = handler
	c.handlersMu.Unlock()
}

// OnStateChange registers the handler invoked on every state transition.
func (c *Client) OnStateChange(handler StateChangeHandler) {
	c.handlersMu.Lock()
	c.onState = handler
	c.handlersMu.Unlock()
}

// Connect dials the WebSocket once; callers wanting automatic retry on the
// initial dial should use ConnectWithRetry.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	connCtx, cancel := context.WithCancel(context.Background())

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.cancel = cancel

	c.setState(StateConnected, nil)

	go c.readLoop(connCtx, conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(connCtx, conn)
	}

	return nil
}

// ConnectWithRetry dials with exponential backoff until success, the
// context is cancelled, or MaxReconnects attempts have been exhausted
// (0 means retry forever).
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := c.config.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	var attempt int
	for {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}

		attempt++
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// readLoop dispatches inbound messages to the registered handler until the
// connection errors, then triggers reconnection unless Close was called.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.handleDisconnect(err)
			return
		}

		c.handlersMu.RLock()
		handler := c.onMessage
		c.handlersMu.RUnlock()
		if handler != nil {
			handler(ctx, data)
		}
	}
}

// pingLoop sends periodic pings; a failed ping is treated as a disconnect.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx := ctx
			if c.config.PongTimeout > 0 {
				var cancel context.CancelFunc
				pingCtx, cancel = context.WithTimeout(ctx, c.config.PongTimeout)
				defer cancel()
			}
			if err := conn.Ping(pingCtx); err != nil {
				c.handleDisconnect(err)
				return
			}
		}
	}
}

// handleDisconnect reacts to a read/ping failure: if the client was closed
// deliberately it settles on StateClosed, otherwise it marks the connection
// reconnecting and retries in the background.
func (c *Client) handleDisconnect(err error) {
	if c.closed.Load() {
		c.setState(StateClosed, nil)
		return
	}

	c.connMu.Lock()
	c.conn = nil
	c.connMu.Unlock()

	c.setState(StateReconnecting, err)
	go func() {
		_ = c.ConnectWithRetry(context.Background())
	}()
}

// Send writes a message frame, serialized access guarded by an internal
// write mutex (coder/websocket permits only one concurrent writer).
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("wsconn: not connected")
	}

	writeCtx := ctx
	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.Write(writeCtx, websocket.MessageText, msg)
}

// SendJSON marshals v and sends it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsconn: marshal payload: %w", err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client currently holds a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the WebSocket connection. Idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.setState(StateClosed, nil)

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	c.handlersMu.RLock()
	handler := c.onState
	c.handlersMu.RUnlock()
	if handler != nil {
		handler(state, err)
	}
}
