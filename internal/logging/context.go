// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyUserID
	keyLogger
)

// ContextWithRequestID tags ctx with the id of the HTTP request it serves.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)
	return id
}

// ContextWithUserID tags ctx with the user the work is done for. The
// session middleware and the background sync loop both set it.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

// UserIDFromContext returns the tagged user ID and whether one was set.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(keyUserID).(int64)
	return id, ok
}

// ContextWithLogger makes Ctx write to l instead of the global logger.
//
//nolint:gocritic // zerolog.Logger is passed by value
func ContextWithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, &l)
}

// Ctx returns a logger carrying the request_id and user_id found in ctx.
//
//	logging.Ctx(ctx).Info().Msg("thermostats synced")
//	// {"level":"info","request_id":"...","user_id":42,"message":"thermostats synced"}
func Ctx(ctx context.Context) *zerolog.Logger {
	base, ok := ctx.Value(keyLogger).(*zerolog.Logger)
	if !ok {
		base = current()
	}

	requestID := RequestIDFromContext(ctx)
	userID, hasUser := UserIDFromContext(ctx)
	if requestID == "" && !hasUser {
		return base
	}

	zc := base.With()
	if requestID != "" {
		zc = zc.Str("request_id", requestID)
	}
	if hasUser {
		zc = zc.Int64("user_id", userID)
	}
	l := zc.Logger()
	return &l
}

func withComponent(name string) zerolog.Logger {
	return current().With().Str("component", name).Logger()
}
