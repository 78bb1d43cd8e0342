// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/beestat/internal/metrics"
)

// scanFunc is a function that scans a single row into a result type
type scanFunc[T any] func(*sql.Rows) (T, error)

// queryAndScan executes a query and scans all rows using the provided scan function
func queryAndScan[T any](ctx context.Context, db *sql.DB, query string, args []any, scan scanFunc[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, nil, "rows")

	var results []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// UserIDsWithEcobeeToken returns the users that hold a live ecobee token,
// the population the background sync walks.
func (db *DB) UserIDsWithEcobeeToken(ctx context.Context) ([]int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	ids, err := queryAndScan(ctx, db.conn, `
		SELECT DISTINCT t.user_id
		FROM ecobee_tokens t
		JOIN users u ON u.user_id = t.user_id
		WHERE t.deleted = false AND u.deleted = false
		ORDER BY t.user_id`, nil, func(rows *sql.Rows) (int64, error) {
		var id int64
		err := rows.Scan(&id)
		return id, err
	})
	metrics.RecordDBQuery("select", "ecobee_tokens", time.Since(start), err)
	if err != nil {
		return nil, queryErr(err, "failed to list users with ecobee tokens")
	}
	return ids, nil
}

// TableCounts returns live row counts per entity table for the health
// endpoint.
func (db *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tables := []string{"users", "thermostats", "sensors"}
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted = false", table)
		if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, queryErr(err, "failed to count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}
