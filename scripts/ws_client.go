// Package main runs a demo WebSocket client for sweep progress events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	date := os.Getenv("SHIPMENT_DATE")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	// Connect WS first so no progress frame is missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/sweeps/stream", RawQuery: "date=" + date}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt map[string]any
			if err := c.ReadJSON(&evt); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %v", evt)
			if evt["stage"] == "done" || evt["stage"] == "failed" {
				return
			}
		}
	}()

	// Kick off a sweep
	body := []byte(fmt.Sprintf(`{"shipmentDate":%q,"force":true}`, date))
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/sweeps", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var ack map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	log.Printf("POST /v1/sweeps -> %d %v", resp.StatusCode, ack)

	select {
	case <-time.After(60 * time.Second):
		log.Printf("timed out waiting for sweep to finish")
	case <-done:
	}
}
