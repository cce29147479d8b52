package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() RetryConfig {
	return RetryConfig{
		InitialInterval:     5 * time.Millisecond,
		MaxInterval:         20 * time.Millisecond,
		MaxElapsedTime:      500 * time.Millisecond,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// memConn records written lines and can be told to fail.
type memConn struct {
	mu     sync.Mutex
	lines  []string
	failAt int // fail the nth write (1-based), 0 never
	closed bool
}

func (m *memConn) WriteLine(line []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return net.ErrClosed
	}
	if m.failAt > 0 && len(m.lines)+1 == m.failAt {
		return errors.New("broken pipe")
	}
	m.lines = append(m.lines, string(line))
	return nil
}

func (m *memConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memConn) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

func dialMem(conn *memConn) DialFunc {
	return func(context.Context, string) (Conn, error) { return conn, nil }
}

func TestCommandShapes(t *testing.T) {
	conn := &memConn{}
	c := NewClient(Options{Address: "mem", Dial: dialMem(conn), Logger: testLogger()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	sends := []func() bool{
		func() bool { return c.SendClick(120, 340, true) },
		func() bool { return c.SendClick(0, 0, false) },
		func() bool { return c.SendRightClick(5, 6, true) },
		func() bool { return c.SendMouseMove(7, 8) },
		func() bool { return c.SendKeyPress("space") },
		func() bool { return c.SendKeyHold("shift") },
		func() bool { return c.SendKeyRelease("shift") },
		func() bool { return c.SendExit() },
	}
	for i, send := range sends {
		if !send() {
			t.Fatalf("send %d failed", i)
		}
	}

	want := []string{
		`{"action":"connect"}`,
		`{"action":"click","x":120,"y":340,"move":true}`,
		`{"action":"click","x":0,"y":0,"move":false}`,
		`{"action":"right_click","x":5,"y":6,"move":true}`,
		`{"action":"move","x":7,"y":8}`,
		`{"action":"key_press","key":"space"}`,
		`{"action":"key_hold","key":"shift"}`,
		`{"action":"key_release","key":"shift"}`,
		`{"action":"exit"}`,
	}
	got := conn.Lines()
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSendWithoutConnect(t *testing.T) {
	c := NewClient(Options{Address: "mem", Dial: dialMem(&memConn{}), Logger: testLogger()})
	if c.IsConnected() {
		t.Fatal("new client should be disconnected")
	}
	if c.SendClick(1, 1, false) {
		t.Error("send on a disconnected client must fail")
	}
}

// TestWriteFailureDisconnects verifies a failed send flips the client to
// disconnected and no later command is written.
func TestWriteFailureDisconnects(t *testing.T) {
	conn := &memConn{failAt: 3}
	c := NewClient(Options{Address: "mem", Dial: dialMem(conn), Logger: testLogger()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	if !c.SendKeyPress("a") {
		t.Fatal("first send should succeed")
	}
	if c.SendKeyPress("b") {
		t.Fatal("second send should fail")
	}
	if c.IsConnected() {
		t.Error("client must be disconnected after a write error")
	}
	if c.SendKeyPress("c") {
		t.Error("send after failure must not be attempted")
	}
	if got := len(conn.Lines()); got != 2 {
		t.Errorf("written lines = %d, want 2", got)
	}
}

func TestDisconnect(t *testing.T) {
	conn := &memConn{}
	c := NewClient(Options{Address: "mem", Dial: dialMem(conn), Logger: testLogger()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	c.Disconnect()
	c.Disconnect()

	if c.IsConnected() {
		t.Error("IsConnected() after Disconnect")
	}
	if !conn.closed {
		t.Error("Disconnect must close the channel")
	}
}

func TestConnectRetriesTransientDialErrors(t *testing.T) {
	conn := &memConn{}
	attempts := 0
	dial := func(context.Context, string) (Conn, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("pipe not ready")
		}
		return conn, nil
	}

	c := NewClient(Options{Address: "retry", Dial: dial, Retry: fastRetry(), Logger: testLogger()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("dial attempts = %d, want 3", attempts)
	}
}

// TestConnectCircuitOpens verifies that repeated connect failures open the
// breaker and later connects fail fast without dialing.
func TestConnectCircuitOpens(t *testing.T) {
	attempts := 0
	dial := func(context.Context, string) (Conn, error) {
		attempts++
		return nil, errors.New("no injector")
	}

	breakers := NewBreakerRegistry(testLogger())
	c := NewClient(Options{Address: "down", Dial: dial, Retry: fastRetry(), Breakers: breakers, Logger: testLogger()})

	for range 3 {
		if err := c.Connect(context.Background()); err == nil {
			t.Fatal("expected connect error")
		}
	}
	if attempts < 5 {
		t.Fatalf("dial attempts = %d, want at least 5 before the breaker trips", attempts)
	}

	before := attempts
	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect error with open breaker")
	}
	if !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Errorf("error = %v, want open breaker", err)
	}
	if attempts != before {
		t.Errorf("open breaker still dialed %d times", attempts-before)
	}
}

func TestConnectCancelled(t *testing.T) {
	dial := func(context.Context, string) (Conn, error) {
		return nil, errors.New("no injector")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Options{Address: "cancel", Dial: dial, Retry: fastRetry(), Logger: testLogger()})
	if err := c.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() = %v, want context.Canceled", err)
	}
}

func TestPipeTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "injector.pipe")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewClient(Options{Address: path, Logger: testLogger()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	c.SendClick(3, 4, false)
	c.Disconnect()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\"action\":\"connect\"}\n{\"action\":\"click\",\"x\":3,\"y\":4,\"move\":false}\n"
	if string(data) != want {
		t.Errorf("pipe contents = %q, want %q", data, want)
	}
}

func TestUnixTransport(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "inj.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 4)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			received <- sc.Text()
		}
	}()

	c := NewClient(Options{Address: "unix://" + sock, Logger: testLogger()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer c.Disconnect()
	c.SendKeyHold("shift")

	for _, want := range []string{`{"action":"connect"}`, `{"action":"key_hold","key":"shift"}`} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("received %s, want %s", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestWebsocketTransport(t *testing.T) {
	received := make(chan map[string]any, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd map[string]any
			if json.Unmarshal(data, &cmd) == nil {
				received <- cmd
			}
		}
	}))
	defer srv.Close()

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(Options{Address: addr, Logger: testLogger()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer c.Disconnect()
	c.SendRightClick(10, 20, false)

	wantActions := []string{ActionConnect, ActionRightClick}
	for _, want := range wantActions {
		select {
		case cmd := <-received:
			if cmd["action"] != want {
				t.Errorf("action = %v, want %s", cmd["action"], want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestDialUnsupportedScheme(t *testing.T) {
	if _, err := Dial(context.Background(), "ftp://nowhere"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
	if _, err := Dial(context.Background(), ""); err == nil {
		t.Error("expected error for empty address")
	}
}
