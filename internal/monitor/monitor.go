// ABOUTME: HTTP monitor server for the sender and receiver
// ABOUTME: Serves health, Prometheus metrics and a websocket stats feed
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/health"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultInterval is how often /ws/stats pushes a snapshot
	DefaultInterval = 500 * time.Millisecond

	writeDeadline   = 5 * time.Second
	shutdownTimeout = 3 * time.Second
)

// Config configures the monitor server
type Config struct {
	Addr string
	// Stats returns a JSON-serializable snapshot
	Stats    func() any
	Interval time.Duration
	Checks   []health.Check
	// Metrics serves /metrics; defaults to the Prometheus default registry
	Metrics http.Handler
}

// Server exposes /healthz, /readyz, /metrics, /stats and /ws/stats
type Server struct {
	config   Config
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	wg      sync.WaitGroup
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closing bool // set once shutdown starts; no new clients after that
}

// New creates a monitor server
func New(config Config) *Server {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Stats == nil {
		config.Stats = func() any { return struct{}{} }
	}
	if config.Metrics == nil {
		config.Metrics = promhttp.Handler()
	}

	s := &Server{
		config:  config,
		mux:     http.NewServeMux(),
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// Read-only diagnostics on a trusted LAN
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	health.New(config.Checks...).Register(s.mux)
	s.mux.Handle("GET /metrics", config.Metrics)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("GET /ws/stats", s.handleStatsStream)

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on config.Addr and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("monitor: listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Printf("Monitor listening on http://%s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("monitor: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	// Hijacked websocket connections are not tracked by Shutdown
	s.closeClients()
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("monitor: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(s.config.Stats()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Monitor websocket upgrade failed: %v", err)
		return
	}

	if !s.addClient(conn) {
		goAway(conn)
		return
	}
	defer s.wg.Done()
	defer s.removeClient(conn)

	// Reads only detect the peer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("Monitor websocket error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if err := s.push(conn); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) push(conn *websocket.Conn) error {
	data, err := json.Marshal(s.config.Stats())
	if err != nil {
		log.Printf("Error marshaling stats: %v", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// addClient registers conn and its handler with the shutdown wait group.
// It refuses the client once closeClients has run.
func (s *Server) addClient(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.clients[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for conn := range s.clients {
		goAway(conn)
	}
}

// goAway sends a going-away close frame and closes conn
func goAway(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
		time.Now().Add(time.Second))
	conn.Close()
}

// ClientCount returns the number of connected stats subscribers
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
