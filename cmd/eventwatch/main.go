// Package main connects to the realtime endpoint and prints relationship events.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	token := flag.String("token", os.Getenv("HABITPAL_TOKEN"), "Bearer token (defaults to $HABITPAL_TOKEN)")
	secure := flag.Bool("tls", false, "Use wss://")
	flag.Parse()

	if *token == "" {
		log.Fatal("❌ A token is required (-token or HABITPAL_TOKEN)")
	}

	scheme := "ws"
	if *secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: *host, Path: "/api/ws", RawQuery: url.Values{"token": {*token}}.Encode()}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("❌ Dial failed: %v (status %d)", err, resp.StatusCode)
		}
		log.Fatalf("❌ Dial failed: %v", err)
	}
	defer conn.Close()
	log.Printf("✅ Connected to %s", u.Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("Read error: %v", err)
				}
				return
			}
			var ev event
			if err := json.Unmarshal(msg, &ev); err != nil {
				log.Printf("raw: %s", msg)
				continue
			}
			log.Printf("%s %s", ev.Type, ev.Payload)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		log.Println("Server closed the connection")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
