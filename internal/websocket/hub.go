// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package websocket

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/metrics"
)

const (
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeSyncCompleted = "sync_completed"
)

// Message is the only frame shape on the socket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Encode renders m as a text frame payload.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// everyone addresses a delivery to all clients.
const everyone int64 = 0

type delivery struct {
	userID int64
	msg    Message
}

// Hub tracks open clients and fans messages out to them. Every client
// belongs to the session user that opened it.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	queue chan delivery

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		queue:      make(chan delivery, 256),
		clients:    make(map[*Client]struct{}),
	}
}

// RunWithContext serves the hub until ctx ends, then closes every client
// and returns ctx.Err(). Pending registrations are handled before queued
// messages so a client registered before a send always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return h.shutdown(ctx)
		}

		select {
		case c := <-h.Register:
			h.add(c)
			continue
		case c := <-h.Unregister:
			h.remove(c, "disconnected")
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return h.shutdown(ctx)
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(c, "disconnected")
		case d := <-h.queue:
			h.fanOut(d)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Debug().Int64("user_id", c.userID).Int("clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client, why string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Set(float64(n))
		logging.Debug().Int64("user_id", c.userID).Str("reason", why).Int("clients", n).Msg("websocket client removed")
	}
}

// fanOut delivers d in connection order. A client that cannot keep up is
// dropped instead of stalling the hub.
func (h *Hub) fanOut(d delivery) {
	var slow []*Client
	for _, c := range h.ordered() {
		if d.userID != everyone && c.userID != d.userID {
			continue
		}
		select {
		case c.send <- d.msg:
			metrics.WSMessagesSent.Inc()
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.remove(c, "send buffer full")
	}
}

func (h *Hub) ordered() []*Client {
	h.mu.RLock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	h.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Client) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

func (h *Hub) shutdown(ctx context.Context) error {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.WSConnections.Set(0)

	ev := logging.Info().Int("clients_closed", n)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ev = ev.Str("reason", "deadline")
	}
	ev.Msg("websocket hub stopped")
	return ctx.Err()
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.queue <- d:
	default:
		logging.Warn().Str("message_type", d.msg.Type).Msg("websocket queue full, message dropped")
	}
}

// BroadcastJSON sends a message to every connected client.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	h.enqueue(delivery{userID: everyone, msg: Message{Type: messageType, Data: data}})
}

// BroadcastToUser sends a message to the clients opened by userID.
func (h *Hub) BroadcastToUser(userID int64, messageType string, data interface{}) {
	h.enqueue(delivery{userID: userID, msg: Message{Type: messageType, Data: data}})
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
