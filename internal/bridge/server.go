// Package bridge is the websocket feed between the host game client and the
// bot. The client streams world snapshots, game events and tick signals; the
// bot answers every tick with its status.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aristath/runebot/internal/engine"
	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

// FeedPath is where the host client connects.
const FeedPath = "/feed"

const shutdownTimeout = 5 * time.Second

// Driver runs the bot. *engine.Engine implements it.
type Driver interface {
	Live() *world.Live
	Bus() *events.Bus
	Tick() engine.Status
	Status() engine.Status
}

// Server accepts host feeds.
type Server struct {
	driver   Driver
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewServer creates a feed server for driver.
func NewServer(driver Driver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		driver: driver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With("component", "bridge"),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Handler serves the feed at FeedPath and the bot status at /status.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(FeedPath, s.handleFeed)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Open feeds are
// closed on shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeFeeds()
	if err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.driver.Status()); err != nil {
		s.logger.Warn("failed to write status", "error", err)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.track(conn)
	defer s.untrack(conn)

	s.logger.Info("host connected", "remote", r.RemoteAddr)
	defer s.logger.Info("host disconnected", "remote", r.RemoteAddr)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("feed read ended", "error", err)
			}
			return
		}
		// A frame may carry several newline-separated messages.
		for _, line := range bytes.Split(payload, []byte{'\n'}) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			reply := s.handle(line)
			if reply == nil {
				continue
			}
			if err := conn.WriteJSON(reply); err != nil {
				s.logger.Warn("failed to write reply", "error", err)
				return
			}
		}
	}
}

// handle applies one message and returns the reply, if any.
func (s *Server) handle(line []byte) any {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		s.logger.Warn("discarding malformed message", "error", err)
		return errorReply("malformed message: " + err.Error())
	}

	switch msg.Type {
	case TypeSnapshot:
		if msg.Snapshot == nil {
			return errorReply("snapshot message without snapshot")
		}
		s.driver.Live().Update(msg.Snapshot)
	case TypeTick:
		return statusReply(s.driver.Tick())
	case TypeStatus:
		return statusReply(s.driver.Status())
	case TypeStatChanged:
		if msg.Skill == "" {
			return errorReply("stat_changed message without skill")
		}
		s.driver.Bus().Post(events.StatChangedEvent{
			Skill:        msg.Skill,
			XP:           msg.XP,
			Level:        msg.Level,
			BoostedLevel: msg.BoostedLevel,
		})
	case TypeAnimationChanged:
		s.driver.Bus().Post(events.AnimationChangedEvent{Animation: msg.Animation})
	case TypeInteractingChanged:
		s.driver.Bus().Post(events.InteractingChangedEvent{Target: msg.Target})
	default:
		s.logger.Warn("unknown message type", "type", msg.Type)
		return errorReply(fmt.Sprintf("unknown message type %q", msg.Type))
	}
	return nil
}

func (s *Server) track(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) closeFeeds() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
