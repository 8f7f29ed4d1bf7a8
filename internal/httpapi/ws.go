package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Supplemented feature: a live-status WebSocket stream, adapted from the
// teacher's overview push pattern, pushing the same JSON the status route
// serves once on connect and then every wsPushInterval, whether or not it
// has changed.
const (
	wsPushInterval  = 5 * time.Second
	wsWriteDeadline = 5 * time.Second
)

var statusUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), strings.TrimSpace(u.Host))
	},
}

func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveStatusConnection(conn)
}

func (s *Server) serveStatusConnection(conn *websocket.Conn) {
	defer conn.Close()

	if err := s.writeStatusFrame(conn); err != nil {
		return
	}

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := s.writeStatusFrame(conn); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) writeStatusFrame(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	return conn.WriteMessage(websocket.TextMessage, s.statusBody())
}
