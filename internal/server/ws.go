package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"courier/internal/domain"
)

const (
	// heartbeatInterval refreshes presence TTLs well inside their expiry.
	heartbeatInterval = 30 * time.Second

	pongWait  = 60 * time.Second
	pingWait  = 10 * time.Second
	readLimit = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authentication happens in the JWT middleware; origin policy belongs
	// to the fronting proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the connection and keeps the user's presence
// alive for its duration. Message payloads are drained and discarded;
// envelope relay is handled by a separate transport.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade for %s: %v", user, err)
		return
	}

	connectionID := uuid.NewString()
	if err := s.registry.SetOnline(r.Context(), user, s.serverID, connectionID); err != nil {
		log.Printf("register connection %s: %v", connectionID, err)
		conn.Close()
		return
	}
	websocketConnections.Inc()
	log.Printf("user %s connected (connection %s)", user, connectionID)

	defer func() {
		websocketConnections.Dec()
		// The request context is gone once the handler unwinds; use a
		// fresh one so the unregister still lands.
		ctx, cancel := contextWithTimeout(5 * time.Second)
		defer cancel()
		if err := s.registry.SetOffline(ctx, user, connectionID); err != nil {
			log.Printf("unregister connection %s: %v", connectionID, err)
		}
		conn.Close()
		log.Printf("user %s disconnected (connection %s)", user, connectionID)
	}()

	done := make(chan struct{})
	go s.heartbeat(conn, user, done)

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	close(done)
}

// heartbeat pings the socket and refreshes the registry TTLs until the
// reader loop ends.
func (s *Server) heartbeat(conn *websocket.Conn, user domain.UserID, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(pingWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			ctx, cancel := contextWithTimeout(pingWait)
			if err := s.registry.Refresh(ctx, user); err != nil {
				log.Printf("refresh presence for %s: %v", user, err)
			}
			cancel()
		}
	}
}
