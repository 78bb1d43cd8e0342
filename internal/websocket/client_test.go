// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// peer starts a server whose side of the connection is driven by script
// and returns the client side.
func peer(t *testing.T, script func(conn *websocket.Conn)) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		script(conn)
	}))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func await(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNewClient(t *testing.T) {
	conn := peer(t, func(*websocket.Conn) { time.Sleep(50 * time.Millisecond) })
	hub := NewHub()

	a := NewClient(hub, conn, 42)
	b := NewClient(hub, conn, 42)

	if a.UserID() != 42 {
		t.Errorf("UserID() = %d, want 42", a.UserID())
	}
	if cap(a.send) != sendBuffer {
		t.Errorf("send buffer = %d, want %d", cap(a.send), sendBuffer)
	}
	if b.ID() <= a.ID() {
		t.Errorf("ids not increasing: %d then %d", a.ID(), b.ID())
	}
}

func TestClient_WriteLoopDeliversMessage(t *testing.T) {
	got := make(chan struct{})
	conn := peer(t, func(conn *websocket.Conn) {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("read: %v", err)
			return
		}
		if msg.Type != MessageTypeSyncCompleted {
			t.Errorf("type = %q, want %q", msg.Type, MessageTypeSyncCompleted)
		}
		close(got)
	})

	c := NewClient(NewHub(), conn, 1)
	go c.writeLoop()
	c.send <- Message{Type: MessageTypeSyncCompleted, Data: map[string]int{"thermostats": 1}}

	await(t, got, "sync_completed")
}

func TestClient_AnswersPing(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	pong := make(chan struct{})
	conn := peer(t, func(conn *websocket.Conn) {
		if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
			t.Errorf("write ping: %v", err)
			return
		}
		var msg Message
		if err := conn.ReadJSON(&msg); err == nil && msg.Type == MessageTypePong {
			close(pong)
		}
		time.Sleep(50 * time.Millisecond)
	})

	NewClient(hub, conn, 1).Start()
	await(t, pong, "pong")
}

func TestClient_ClosedSendClosesConnection(t *testing.T) {
	closed := make(chan struct{})
	conn := peer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	})

	c := NewClient(NewHub(), conn, 1)
	go c.writeLoop()
	close(c.send)

	await(t, closed, "close frame")
}

func TestClient_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	conn := peer(t, func(conn *websocket.Conn) {})
	c := NewClient(hub, conn, 9)
	hub.Register <- c
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.GetClientCount(); n != 0 {
		t.Errorf("GetClientCount() = %d after peer hung up, want 0", n)
	}
}
