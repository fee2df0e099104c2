package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// SweepStreamHandler streams sweep progress events over WebSocket for
// ?date=YYYY-MM-DD. Events are JSON-encoded ProgressEvent frames; the stream
// closes when the client goes away or stops answering pings.
func (s *Server) SweepStreamHandler(w http.ResponseWriter, r *http.Request) {
	_, tenant := s.withTenant(r)
	date := r.URL.Query().Get("date")
	if date == "" {
		writeProblem(w, 400, "Validation failed", "date required", r.URL.Path)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	key := EventKey(tenant, date)
	ch := s.Broker.Subscribe(key)
	defer s.Broker.Unsubscribe(key, ch)

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Drain control frames; a read error ends the stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(25 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Stage == "done" || evt.Stage == "failed" {
				return
			}
		}
	}
}
