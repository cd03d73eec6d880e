package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsMinInterval  = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveConnection(conn)
}

// serveConnection pushes the full state on connect and again after every
// change, at most once per wsMinInterval.
func (s *Server) serveConnection(conn *websocket.Conn) {
	defer conn.Close()

	entries, cancel := s.events.Subscribe(16)
	defer cancel()

	changed := s.changeSignal()
	if err := s.writeState(conn); err != nil {
		return
	}
	lastPush := time.Now()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var (
		pending  bool
		throttle <-chan time.Time
	)
	for {
		select {
		case <-done:
			return
		case <-entries:
			pending = true
		case <-changed:
			changed = s.changeSignal()
			pending = true
		case <-throttle:
			throttle = nil
		}

		if !pending || throttle != nil {
			continue
		}
		if wait := wsMinInterval - time.Since(lastPush); wait > 0 {
			throttle = time.After(wait)
			continue
		}
		if err := s.writeState(conn); err != nil {
			return
		}
		pending = false
		lastPush = time.Now()
	}
}

func (s *Server) writeState(conn *websocket.Conn) error {
	data, err := json.Marshal(s.buildState())
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
