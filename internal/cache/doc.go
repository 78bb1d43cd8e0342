// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package cache provides the in-memory TTL cache used in front of upstream
// APIs.
//
// A Cache is bounded: when it is full the least recently used entry is
// evicted. Entries also expire after the cache TTL. GetOrLoad collapses
// concurrent misses for one key into a single load, so the thermostat and
// sensor sync of one user share a single ecobee fetch.
//
//	c := cache.New[[]byte]("ecobee", 30*time.Second, 1000)
//	defer c.Close()
//
//	body, err := c.GetOrLoad(key, func() ([]byte, error) {
//	    return fetch(ctx)
//	})
//
// Hits, misses, evictions and size are exported as Prometheus metrics
// labelled with the cache name.
package cache
