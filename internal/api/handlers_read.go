// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
	"fmt"
	"math"

	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/models"
)

// readID returns a read_id method for T: the session user's rows keyed by
// primary key, optionally narrowed by an "attributes" equality filter.
func readID[T database.Row](db *database.DB) MethodFunc {
	return func(ctx context.Context, c *Call) (*Result, error) {
		userID, err := c.requireUser()
		if err != nil {
			return nil, err
		}
		where, err := attributesFilter(c)
		if err != nil {
			return nil, err
		}

		rows, err := database.List[T](ctx, db, database.Filter{UserID: userID, Where: where})
		if err != nil {
			return nil, err
		}
		out := make(map[int64]T, len(rows))
		for i := range rows {
			out[database.PrimaryKey(&rows[i])] = rows[i]
		}
		return &Result{Data: out}, nil
	}
}

func (h *Handler) addressReadID(ctx context.Context, c *Call) (*Result, error) {
	userID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	addresses, err := h.addresses.ReadID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{Data: addresses}, nil
}

// attributesFilter decodes the optional "attributes" argument into a
// column filter. Values must be scalars, null or arrays of scalars.
// user_id cannot be overridden.
func attributesFilter(c *Call) (map[string]any, error) {
	if !c.Has("attributes") {
		return nil, nil
	}
	var attrs map[string]interface{}
	if err := c.Decode("attributes", &attrs); err != nil {
		return nil, err
	}

	where := make(map[string]any, len(attrs))
	for column, value := range attrs {
		if column == "user_id" {
			return nil, models.NewCodedError(models.CodeInvalidArgument, "user_id cannot be filtered")
		}
		v, err := filterValue(value)
		if err != nil {
			return nil, models.NewCodedError(models.CodeInvalidArgument,
				fmt.Sprintf("Invalid filter on %s: %v", column, err))
		}
		where[column] = v
	}
	return where, nil
}

func filterValue(v interface{}) (any, error) {
	switch t := v.(type) {
	case nil, string, bool:
		return t, nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t), nil
		}
		return t, nil
	case []interface{}:
		out := make([]any, len(t))
		for i, item := range t {
			if _, nested := item.([]interface{}); nested {
				return nil, fmt.Errorf("nested arrays are not supported")
			}
			sv, err := filterValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}
