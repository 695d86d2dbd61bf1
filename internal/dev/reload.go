package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Message is a text frame sent to connected browsers.
type Message string

const (
	// MessageReload asks the browser to reload the document.
	MessageReload Message = "reload"
	// MessageCSS asks the browser to refetch its stylesheets.
	MessageCSS Message = "css"
)

// ReloadServer serves the hot-reload endpoints:
//
//	/_next/hot-reload             WebSocket, receives Message frames
//	/_next/on-demand-entries-ping liveness ping from the browser runtime
type ReloadServer struct {
	logger   *slog.Logger
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// NewReloadServer creates a new reload server. A nil logger uses slog.Default().
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadServer{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // development only
			},
		},
	}
}

func (s *ReloadServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/on-demand-entries-ping"):
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	case websocket.IsWebSocketUpgrade(r):
		s.handleWebSocket(w, r)
	default:
		http.Error(w, "expected a websocket upgrade", http.StatusBadRequest)
	}
}

func (s *ReloadServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("dev: upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.logger.Debug("dev: browser connected", "remote", r.RemoteAddr)

	// Browsers never send anything; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Notify sends msg to every connected browser and returns how many
// received it.
func (s *ReloadServer) Notify(msg Message) int {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			s.mu.Lock()
			delete(s.clients, client)
			s.mu.Unlock()
			client.Close()
			continue
		}
		sent++
	}
	return sent
}

// ClientCount returns the number of connected browsers.
func (s *ReloadServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close closes all browser connections.
func (s *ReloadServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}
