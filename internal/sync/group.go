// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package sync

import (
	"context"

	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/models"
)

// SyncGroupAttributes merges the system type and property of the group's
// active thermostats into the group row. Each column takes the most common
// non-null value; a thermostat's reported system type wins over the
// detected one.
func (r *Reconciler) SyncGroupAttributes(ctx context.Context, userID, groupID int64) error {
	group, err := database.Get[models.ThermostatGroup](ctx, r.db, userID, groupID)
	if err != nil {
		return err
	}
	members, err := database.List[models.Thermostat](ctx, r.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"thermostat_group_id": groupID, "inactive": false},
	})
	if err != nil {
		return err
	}

	var heat, aux, cool, structure votes[string]
	var stories, squareFeet, age votes[int64]
	for _, m := range members {
		if st := m.SystemType; st != nil {
			heat.add(prefer(st.Reported.Heat, st.Detected.Heat))
			aux.add(prefer(st.Reported.HeatAuxiliary, st.Detected.HeatAuxiliary))
			cool.add(prefer(st.Reported.Cool, st.Detected.Cool))
		}
		if p := m.Property; p != nil {
			structure.add(p.StructureType)
			stories.add(widen(p.Stories))
			squareFeet.add(widen(p.SquareFeet))
			age.add(widen(p.Age))
		}
	}

	next := *group
	next.SystemTypeHeat = heat.mode()
	next.SystemTypeHeatAuxiliary = aux.mode()
	next.SystemTypeCool = cool.mode()
	next.PropertyStructureType = structure.mode()
	next.PropertyStories = stories.mode()
	next.PropertySquareFeet = squareFeet.mode()
	next.PropertyAge = age.mode()

	_, err = database.UpdateChanged(ctx, r.db, group, &next)
	return err
}

func prefer(reported, detected *string) *string {
	if reported != nil {
		return reported
	}
	return detected
}

func widen(v *int) *int64 {
	if v == nil {
		return nil
	}
	w := int64(*v)
	return &w
}

// votes counts values in first-seen order so ties resolve to the value seen
// first.
type votes[T comparable] struct {
	order  []T
	counts map[T]int
}

func (t *votes[T]) add(v *T) {
	if v == nil {
		return
	}
	if t.counts == nil {
		t.counts = make(map[T]int)
	}
	if t.counts[*v] == 0 {
		t.order = append(t.order, *v)
	}
	t.counts[*v]++
}

func (t *votes[T]) mode() *T {
	var best *T
	bestCount := 0
	for i := range t.order {
		if c := t.counts[t.order[i]]; c > bestCount {
			best = &t.order[i]
			bestCount = c
		}
	}
	return best
}
