package sla

import (
	"math"
	"time"

	"sla-mcp/internal/calendar"
)

// breakdownNoise is the smallest bucket kept in a breakdown, in minutes.
const breakdownNoise = 0.01

// Accumulate books the working time of every timeline segment into a
// labelled breakdown and derives reaction, pause and net resolution minutes.
// Open issues are measured up to now.
func Accumulate(events []TimelineEvent, anchors Anchors, cal calendar.Policy, labels Labels, now time.Time) Durations {
	boundary := now
	if anchors.Completion != nil {
		boundary = *anchors.Completion
	}

	raw := make(map[string]float64)
	var pause float64

	for i, ev := range events {
		end := boundary
		if i+1 < len(events) && events[i+1].At.Before(end) {
			end = events[i+1].At
		}
		if !end.After(ev.At) {
			continue
		}

		raw[ev.Label()] += cal.Elapsed(ev.At, end)

		if anchors.WorkStart != nil && end.After(*anchors.WorkStart) && labels.IsPaused(ev) {
			start := ev.At
			if anchors.WorkStart.After(start) {
				start = *anchors.WorkStart
			}
			pause += cal.Elapsed(start, end)
		}
	}

	d := Durations{
		Breakdown: cleanBreakdown(raw),
		Pause:     pause,
	}

	if anchors.QueueEntry != nil {
		end := boundary
		if anchors.WorkStart != nil {
			end = *anchors.WorkStart
		}
		d.Reaction = cal.Elapsed(*anchors.QueueEntry, end)
	}

	if anchors.WorkStart != nil {
		d.Resolution = math.Max(0, cal.Elapsed(*anchors.WorkStart, boundary)-pause)
	}

	return d
}

func cleanBreakdown(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for label, minutes := range raw {
		if minutes <= breakdownNoise {
			continue
		}
		out[label] = round2(minutes)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
