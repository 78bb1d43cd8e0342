// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package sync

import (
	"math"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func equal[T comparable](t *testing.T, field string, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

func ptrEqual[T comparable](t *testing.T, field string, got *T, want T) {
	t.Helper()
	switch {
	case got == nil:
		t.Errorf("%s = nil, want %v", field, want)
	case *got != want:
		t.Errorf("%s = %v, want %v", field, *got, want)
	}
}

func isNil[T any](t *testing.T, field string, got *T) {
	t.Helper()
	if got != nil {
		t.Errorf("%s = %v, want nil", field, *got)
	}
}

// floatPtrEqual treats two nils as equal and compares values within 1e-9.
func floatPtrEqual(t *testing.T, field string, got, want *float64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v, want %v", field, fmtFloatPtr(got), fmtFloatPtr(want))
	case math.Abs(*got-*want) > 1e-9:
		t.Errorf("%s = %v, want %v", field, *got, *want)
	}
}

func fmtFloatPtr(p *float64) interface{} {
	if p == nil {
		return "nil"
	}
	return *p
}
