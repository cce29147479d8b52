package ipc

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single command write on socket transports.
const writeTimeout = 2 * time.Second

// Conn is a byte stream that accepts one JSON command per line.
type Conn interface {
	// WriteLine writes line followed by a newline as one unit.
	WriteLine(line []byte) error
	Close() error
}

// DialFunc opens a Conn to an injector address.
type DialFunc func(ctx context.Context, address string) (Conn, error)

// Dial opens a connection chosen by the address scheme:
//
//	pipe:///path or a bare path   named pipe or regular file, opened write-only
//	unix:///path                  unix domain socket
//	tcp://host:port               TCP socket
//	ws://host/path, wss://...     websocket, one text message per command
func Dial(ctx context.Context, address string) (Conn, error) {
	if address == "" {
		return nil, fmt.Errorf("empty injector address")
	}
	scheme, rest, ok := strings.Cut(address, "://")
	if !ok {
		return dialPipe(address)
	}

	switch scheme {
	case "pipe", "file":
		return dialPipe(rest)
	case "unix", "tcp":
		var d net.Dialer
		c, err := d.DialContext(ctx, scheme, rest)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", address, err)
		}
		return &streamConn{c: c}, nil
	case "ws", "wss":
		u, err := url.Parse(address)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", address, err)
		}
		c, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", address, err)
		}
		return &wsConn{c: c}, nil
	default:
		return nil, fmt.Errorf("unsupported injector scheme %q", scheme)
	}
}

func dialPipe(path string) (Conn, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open pipe %s: %w", path, err)
	}
	return &fileConn{f: f}, nil
}

type fileConn struct {
	mu sync.Mutex
	f  *os.File
}

func (c *fileConn) WriteLine(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.f.Write(append(line, '\n'))
	return err
}

func (c *fileConn) Close() error {
	return c.f.Close()
}

type streamConn struct {
	mu sync.Mutex
	c  net.Conn
}

func (c *streamConn) WriteLine(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := c.c.Write(append(line, '\n'))
	return err
}

func (c *streamConn) Close() error {
	return c.c.Close()
}

// wsConn serialises writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (c *wsConn) WriteLine(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.c.WriteMessage(websocket.TextMessage, line)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.c.Close()
}
