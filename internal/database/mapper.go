// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package database

import (
	"bytes"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Row is implemented by every model stored through the mapper.
type Row interface {
	TableName() string
}

type column struct {
	name     string
	index    []int
	pk       bool
	json     bool
	readonly bool
}

// tableInfo is the reflected layout of a row type.
type tableInfo struct {
	table   string
	pk      *column
	columns []*column
	byName  map[string]*column
}

var tableCache sync.Map // reflect.Type -> *tableInfo

func tableFor[T Row]() *tableInfo {
	var zero T
	typ := reflect.TypeOf(zero)
	if cached, ok := tableCache.Load(typ); ok {
		return cached.(*tableInfo)
	}

	info := &tableInfo{
		table:  zero.TableName(),
		byName: make(map[string]*column),
	}
	info.collect(typ, nil)
	if info.pk == nil {
		panic(fmt.Sprintf("database: %s has no pk column", typ))
	}

	actual, _ := tableCache.LoadOrStore(typ, info)
	return actual.(*tableInfo)
}

// collect walks struct fields; embedded structs without a db tag are
// flattened into the parent.
func (t *tableInfo) collect(typ reflect.Type, parent []int) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		index := append(append([]int(nil), parent...), i)

		tag, ok := f.Tag.Lookup("db")
		if !ok {
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				t.collect(f.Type, index)
			}
			continue
		}
		if tag == "-" || !f.IsExported() {
			continue
		}

		parts := strings.Split(tag, ",")
		col := &column{name: parts[0], index: index}
		for _, opt := range parts[1:] {
			switch opt {
			case "pk":
				col.pk = true
			case "json":
				col.json = true
			case "readonly":
				col.readonly = true
			}
		}

		t.columns = append(t.columns, col)
		t.byName[col.name] = col
		if col.pk {
			t.pk = col
		}
	}
}

func (t *tableInfo) has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func (t *tableInfo) selectList() string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = quoteIdent(col.name)
	}
	return strings.Join(names, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanInto scans one result row (in selectList order) into dst, which must
// be an addressable struct value.
func (t *tableInfo) scanInto(scanner rowScanner, dst reflect.Value) error {
	dests := make([]any, len(t.columns))
	jsonCols := make(map[int]*sql.NullString)

	for i, col := range t.columns {
		if col.json {
			ns := &sql.NullString{}
			jsonCols[i] = ns
			dests[i] = ns
			continue
		}
		dests[i] = dst.FieldByIndex(col.index).Addr().Interface()
	}

	if err := scanner.Scan(dests...); err != nil {
		return err
	}

	for i, ns := range jsonCols {
		col := t.columns[i]
		if err := decodeJSONColumn(ns, dst.FieldByIndex(col.index)); err != nil {
			return fmt.Errorf("failed to decode %s.%s: %w", t.table, col.name, err)
		}
	}
	return nil
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

func decodeJSONColumn(ns *sql.NullString, field reflect.Value) error {
	field.Set(reflect.Zero(field.Type()))
	if !ns.Valid || ns.String == "" {
		return nil
	}
	if field.Type() == rawMessageType {
		field.SetBytes([]byte(ns.String))
		return nil
	}
	return json.Unmarshal([]byte(ns.String), field.Addr().Interface())
}

// value returns the database representation of col in v: pointers are
// dereferenced, times are UTC and JSON columns are compact text.
func (t *tableInfo) value(col *column, v reflect.Value) (any, error) {
	field := v.FieldByIndex(col.index)
	if col.json {
		return encodeJSONColumn(field)
	}
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return nil, nil
		}
		field = field.Elem()
	}
	if ts, ok := field.Interface().(time.Time); ok {
		return ts.UTC(), nil
	}
	return field.Interface(), nil
}

// encodeJSONColumn marshals field to compact JSON text. Nil values and a
// literal null are stored as SQL NULL.
func encodeJSONColumn(field reflect.Value) (any, error) {
	switch field.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		if field.IsNil() {
			return nil, nil
		}
	}

	var raw []byte
	if field.Type() == rawMessageType {
		raw = field.Bytes()
	} else {
		encoded, err := json.Marshal(field.Interface())
		if err != nil {
			return nil, err
		}
		raw = encoded
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	return buf.String(), nil
}

// sameValue compares two values produced by tableInfo.value.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Truncate(time.Microsecond).Equal(tb.Truncate(time.Microsecond))
	}
	return a == b
}

// Filter scopes a read or bulk write.
type Filter struct {
	// UserID restricts the query to one user's rows. Zero means unscoped
	// and is reserved for system callers.
	UserID int64

	// Where holds column equality conditions. A nil value matches NULL and
	// a slice value becomes an IN list.
	Where map[string]any

	// WithDeleted includes soft-deleted rows.
	WithDeleted bool
}

// whereClause renders f as a WHERE clause (with leading space) plus args.
func (t *tableInfo) whereClause(f Filter) (string, []any, error) {
	var clauses []string
	var args []any

	if f.UserID != 0 && t.has("user_id") {
		clauses = append(clauses, `"user_id" = ?`)
		args = append(args, f.UserID)
	}
	if !f.WithDeleted && t.has("deleted") {
		clauses = append(clauses, `"deleted" = false`)
	}

	keys := make([]string, 0, len(f.Where))
	for k := range f.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !t.has(k) {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.table, k)
		}
		v := f.Where[k]
		if v == nil {
			clauses = append(clauses, quoteIdent(k)+" IS NULL")
			continue
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			if rv.Len() == 0 {
				clauses = append(clauses, "false")
				continue
			}
			placeholders := make([]string, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				placeholders[i] = "?"
				args = append(args, rv.Index(i).Interface())
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", quoteIdent(k), strings.Join(placeholders, ", ")))
			continue
		}

		clauses = append(clauses, quoteIdent(k)+" = ?")
		args = append(args, v)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
