package sla

import (
	"time"

	"sla-mcp/internal/calendar"
)

// Projection holds the instants at which remaining allowances run out.
type Projection struct {
	ReactionBreachAt   *time.Time
	ResolutionBreachAt *time.Time
}

// Project forecasts breach instants for clocks that are still running.
// Nothing is projected once an allowance is already spent, and the
// resolution clock is not projected while the issue is paused.
func Project(anchors Anchors, d Durations, t Targets, cal calendar.Policy, paused bool, now time.Time) Projection {
	var p Projection

	if anchors.QueueEntry != nil && anchors.WorkStart == nil && anchors.Completion == nil && t.ReactionConstrained {
		if remaining := t.Reaction - d.Reaction; remaining > 0 {
			at := cal.Add(now, remaining)
			p.ReactionBreachAt = &at
		}
	}

	if anchors.WorkStart != nil && anchors.Completion == nil && !paused {
		if remaining := t.Resolution - d.Resolution; remaining > 0 {
			at := cal.Add(now, remaining)
			p.ResolutionBreachAt = &at
		}
	}

	return p
}
