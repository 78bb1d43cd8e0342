// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tomtom215/beestat/internal/metrics"
)

// List returns every row of T matching f, ordered by primary key.
func List[T Row](ctx context.Context, db *DB, f Filter) (results []T, err error) {
	t := tableFor[T]()
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", t.table, time.Since(start), err) }()

	where, args, err := t.whereClause(f)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		t.selectList(), t.table, where, quoteIdent(t.pk.name))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryErr(err, "failed to query %s", t.table)
	}
	defer closeWithLog(rows, nil, "rows")

	results = []T{}
	for rows.Next() {
		var item T
		if err := t.scanInto(rows, reflect.ValueOf(&item).Elem()); err != nil {
			return nil, queryErr(err, "failed to scan %s", t.table)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err, "error iterating %s", t.table)
	}
	return results, nil
}

// First returns the lowest-keyed row matching f, or ErrNotFound.
func First[T Row](ctx context.Context, db *DB, f Filter) (*T, error) {
	t := tableFor[T]()
	start := time.Now()

	where, args, err := t.whereClause(f)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT 1",
		t.selectList(), t.table, where, quoteIdent(t.pk.name))

	var item T
	err = t.scanInto(db.conn.QueryRowContext(ctx, query, args...), reflect.ValueOf(&item).Elem())
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", t.table, time.Since(start), nil)
		return nil, ErrNotFound
	}
	metrics.RecordDBQuery("select", t.table, time.Since(start), err)
	if err != nil {
		return nil, queryErr(err, "failed to query %s", t.table)
	}
	return &item, nil
}

// Get returns the row of T with primary key id owned by userID.
func Get[T Row](ctx context.Context, db *DB, userID, id int64) (*T, error) {
	t := tableFor[T]()
	return First[T](ctx, db, Filter{
		UserID: userID,
		Where:  map[string]any{t.pk.name: id},
	})
}

// Create inserts row. The primary key and audit timestamps are assigned by
// the database layer and written back into row.
func Create[T Row](ctx context.Context, db *DB, row *T) (err error) {
	t := tableFor[T]()
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", t.table, time.Since(start), err) }()

	v := reflect.ValueOf(row).Elem()
	now := time.Now().UTC().Truncate(time.Microsecond)

	var names, placeholders []string
	var args []any
	for _, col := range t.columns {
		if col.pk {
			continue
		}
		var value any
		if col.readonly {
			setTimestamp(v, col, now)
			value = now
		} else {
			value, err = t.value(col, v)
			if err != nil {
				return fmt.Errorf("failed to encode %s.%s: %w", t.table, col.name, err)
			}
		}
		names = append(names, quoteIdent(col.name))
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.table, strings.Join(names, ", "), strings.Join(placeholders, ", "), quoteIdent(t.pk.name))

	var id int64
	if err = db.conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return queryErr(err, "failed to insert into %s", t.table)
	}
	v.FieldByIndex(t.pk.index).SetInt(id)

	db.recordWrite(t.table, 1)
	return nil
}

// UpdateChanged compares next against current column by column and writes
// only the columns that differ. The primary key of current identifies the
// row. On success current holds the stored state. It reports whether
// anything was written.
func UpdateChanged[T Row](ctx context.Context, db *DB, current, next *T) (changed bool, err error) {
	t := tableFor[T]()
	cur := reflect.ValueOf(current).Elem()
	nxt := reflect.ValueOf(next).Elem()

	var sets []string
	var args []any
	for _, col := range t.columns {
		if col.pk || col.readonly {
			continue
		}
		oldValue, err := t.value(col, cur)
		if err != nil {
			return false, fmt.Errorf("failed to encode %s.%s: %w", t.table, col.name, err)
		}
		newValue, err := t.value(col, nxt)
		if err != nil {
			return false, fmt.Errorf("failed to encode %s.%s: %w", t.table, col.name, err)
		}
		if sameValue(oldValue, newValue) {
			continue
		}
		sets = append(sets, quoteIdent(col.name)+" = ?")
		args = append(args, newValue)
	}

	nxt.FieldByIndex(t.pk.index).Set(cur.FieldByIndex(t.pk.index))
	for _, col := range t.columns {
		if col.readonly {
			nxt.FieldByIndex(col.index).Set(cur.FieldByIndex(col.index))
		}
	}

	if len(sets) == 0 {
		cur.Set(nxt)
		return false, nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("update", t.table, time.Since(start), err) }()

	now := time.Now().UTC().Truncate(time.Microsecond)
	if col, ok := t.byName["updated_at"]; ok {
		sets = append(sets, `"updated_at" = ?`)
		args = append(args, now)
		setTimestamp(nxt, col, now)
	}
	args = append(args, cur.FieldByIndex(t.pk.index).Interface())

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		t.table, strings.Join(sets, ", "), quoteIdent(t.pk.name))
	if _, err = db.conn.ExecContext(ctx, query, args...); err != nil {
		return false, queryErr(err, "failed to update %s", t.table)
	}

	cur.Set(nxt)
	db.recordWrite(t.table, 1)
	return true, nil
}

// SoftDelete flags the row with primary key id as deleted. It returns
// ErrNotFound when userID owns no such live row.
func SoftDelete[T Row](ctx context.Context, db *DB, userID, id int64) error {
	t := tableFor[T]()
	n, err := updateWhere(ctx, db, t, `"deleted" = true`, Filter{
		UserID: userID,
		Where:  map[string]any{t.pk.name: id},
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkInactive sets inactive on the active rows of userID whose primary key
// is in ids and returns how many rows changed.
func MarkInactive[T Row](ctx context.Context, db *DB, userID int64, ids []int64) (int, error) {
	t := tableFor[T]()
	if !t.has("inactive") {
		return 0, fmt.Errorf("%w: %s.inactive", ErrUnknownColumn, t.table)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return updateWhere(ctx, db, t, `"inactive" = true`, Filter{
		UserID: userID,
		Where:  map[string]any{t.pk.name: ids, "inactive": false},
	})
}

func updateWhere(ctx context.Context, db *DB, t *tableInfo, set string, f Filter) (n int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("update", t.table, time.Since(start), err) }()

	where, args, err := t.whereClause(f)
	if err != nil {
		return 0, err
	}

	if t.has("updated_at") {
		set += `, "updated_at" = ?`
		args = append([]any{time.Now().UTC().Truncate(time.Microsecond)}, args...)
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("UPDATE %s SET %s%s", t.table, set, where)
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, queryErr(err, "failed to update %s", t.table)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, queryErr(err, "failed to read affected rows for %s", t.table)
	}
	db.recordWrite(t.table, int(affected))
	return int(affected), nil
}

func setTimestamp(v reflect.Value, col *column, ts time.Time) {
	field := v.FieldByIndex(col.index)
	if field.Type() == reflect.TypeOf(time.Time{}) {
		field.Set(reflect.ValueOf(ts))
	}
}

func (db *DB) recordWrite(table string, rows int) {
	db.writes.Add(int64(rows))
	metrics.RecordDBWrite(table, rows)
}

// PrimaryKey returns the primary key of row.
func PrimaryKey[T Row](row *T) int64 {
	t := tableFor[T]()
	return reflect.ValueOf(row).Elem().FieldByIndex(t.pk.index).Int()
}
