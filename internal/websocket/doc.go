// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package websocket pushes live updates to the dashboard.

It uses gorilla/websocket with a hub-client architecture. Every client is
opened by a session user, and sync results are delivered only to that
user's clients.

Key Components:

  - Hub: registers clients and fans messages out to them
  - Client: one connection with a read and a write goroutine
  - Message: {"type": ..., "data": ...}

Each client has two goroutines:
  - readLoop: reads from the socket and answers "ping" messages
  - writeLoop: writes queued messages and sends protocol pings

Message Types:

  - sync_completed: a sync pass finished; data is the sync result
  - ping / pong: application-level keepalive

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	client := websocket.NewClient(hub, conn, session.UserID)
	hub.Register <- client
	client.Start()

	hub.BroadcastToUser(userID, websocket.MessageTypeSyncCompleted, result)

A client whose send buffer is full is dropped rather than blocking the
hub.
*/
package websocket
