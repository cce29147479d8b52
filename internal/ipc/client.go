// Package ipc is the command channel to the external input-injection process:
// line-delimited JSON objects, one command per line, over a long-lived stream.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotConnected is returned by operations that need an open channel.
var ErrNotConnected = errors.New("injector not connected")

// Command actions understood by the injector.
const (
	ActionConnect    = "connect"
	ActionClick      = "click"
	ActionRightClick = "right_click"
	ActionMove       = "move"
	ActionKeyPress   = "key_press"
	ActionKeyHold    = "key_hold"
	ActionKeyRelease = "key_release"
	ActionExit       = "exit"
)

type simpleCommand struct {
	Action string `json:"action"`
}

type pointCommand struct {
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Move   *bool  `json:"move,omitempty"`
}

type keyCommand struct {
	Action string `json:"action"`
	Key    string `json:"key"`
}

// Options configures a Client.
type Options struct {
	Address  string
	Dial     DialFunc // defaults to Dial
	Retry    RetryConfig
	Breakers *BreakerRegistry
	Logger   *slog.Logger
}

// Client sends input commands to the injector. Sends never retry: a failed
// write marks the client disconnected and reports false to the caller.
// It is safe for concurrent use.
type Client struct {
	address  string
	dial     DialFunc
	retry    RetryConfig
	breakers *BreakerRegistry
	logger   *slog.Logger

	mu        sync.Mutex
	conn      Conn
	connected bool
	writeErr  error
}

// NewClient creates a disconnected client.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "ipc")
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Breakers == nil {
		opts.Breakers = NewBreakerRegistry(logger)
	}
	return &Client{
		address:  opts.Address,
		dial:     opts.Dial,
		retry:    opts.Retry,
		breakers: opts.Breakers,
		logger:   logger,
	}
}

// Address returns the injector address.
func (c *Client) Address() string {
	return c.address
}

// Connect opens the channel and sends the connect handshake. Transient dial
// failures are retried with backoff; repeated failures open the address's
// circuit breaker, after which Connect fails fast.
func (c *Client) Connect(ctx context.Context) error {
	c.Disconnect()

	cb := c.breakers.Get(c.address)
	conn, err := connectWithRetry(ctx, cb, c.retry, c.logger, func(ctx context.Context) (Conn, error) {
		conn, err := c.dial(ctx, c.address)
		if err != nil {
			return nil, err
		}
		line, err := json.Marshal(simpleCommand{Action: ActionConnect})
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := conn.WriteLine(line); err != nil {
			conn.Close()
			return nil, fmt.Errorf("connect handshake: %w", err)
		}
		return conn, nil
	})
	if err != nil {
		c.logger.Error("failed to connect to injector", "address", c.address, "error", err)
		return fmt.Errorf("connect %s: %w", c.address, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.writeErr = nil
	c.mu.Unlock()

	c.logger.Info("connected to injector", "address", c.address)
	return nil
}

// IsConnected reports whether the channel is open and no write has failed.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.writeErr == nil
}

// Disconnect closes the channel. It is safe to call when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	wasConnected := c.connected
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		c.logger.Debug("error closing injector channel", "error", err)
	}
	if wasConnected {
		c.logger.Info("disconnected from injector", "address", c.address)
	}
}

// SendClick clicks at (x, y). move asks the injector to move the cursor first.
func (c *Client) SendClick(x, y int, move bool) bool {
	return c.send(pointCommand{Action: ActionClick, X: x, Y: y, Move: &move})
}

// SendRightClick right-clicks at (x, y), moving the cursor first when move is set.
func (c *Client) SendRightClick(x, y int, move bool) bool {
	return c.send(pointCommand{Action: ActionRightClick, X: x, Y: y, Move: &move})
}

// SendMouseMove moves the cursor to (x, y).
func (c *Client) SendMouseMove(x, y int) bool {
	return c.send(pointCommand{Action: ActionMove, X: x, Y: y})
}

// SendKeyPress presses and releases key.
func (c *Client) SendKeyPress(key string) bool {
	return c.send(keyCommand{Action: ActionKeyPress, Key: key})
}

// SendKeyHold holds key down.
func (c *Client) SendKeyHold(key string) bool {
	return c.send(keyCommand{Action: ActionKeyHold, Key: key})
}

// SendKeyRelease releases a held key.
func (c *Client) SendKeyRelease(key string) bool {
	return c.send(keyCommand{Action: ActionKeyRelease, Key: key})
}

// SendExit asks the injector process to shut down.
func (c *Client) SendExit() bool {
	return c.send(simpleCommand{Action: ActionExit})
}

func (c *Client) send(cmd any) bool {
	line, err := json.Marshal(cmd)
	if err != nil {
		c.logger.Error("failed to encode command", "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil || c.writeErr != nil {
		c.logger.Warn("command dropped", "command", string(line), "error", ErrNotConnected)
		return false
	}
	if err := c.conn.WriteLine(line); err != nil {
		c.writeErr = err
		c.connected = false
		c.logger.Error("failed to send command", "command", string(line), "error", err)
		return false
	}
	c.logger.Debug("command sent", "command", string(line))
	return true
}
