package sla

import (
	"slices"
	"strings"
	"time"
)

// phase is the coarse lifecycle position of an issue while its history is replayed.
type phase int

const (
	phaseIntake phase = iota
	phaseActive
	phaseDone
)

// anchorMachine derives anchors from status transitions.
//
// Transition priority for workStart: an exact intake->active transition wins
// over the first entry into any active status, regardless of which came first.
// Every anchor keeps its first value once set.
type anchorMachine struct {
	labels  Labels
	phase   phase
	anchors Anchors

	exactWorkStart    *time.Time
	fallbackWorkStart *time.Time
	causalLink        *time.Time
}

func newAnchorMachine(labels Labels) *anchorMachine {
	return &anchorMachine{labels: labels, phase: phaseIntake}
}

func (m *anchorMachine) transition(at time.Time, from, to string) {
	switch {
	case m.labels.IsIntake(to):
		setOnce(&m.anchors.QueueEntry, at)
		m.phase = phaseIntake
	case m.labels.IsActive(to):
		if m.phase == phaseIntake && m.labels.IsIntake(from) {
			setOnce(&m.exactWorkStart, at)
		}
		setOnce(&m.fallbackWorkStart, at)
		m.phase = phaseActive
	case m.labels.IsDone(to):
		setOnce(&m.anchors.Completion, at)
		m.phase = phaseDone
	}
}

func (m *anchorMachine) linked(at time.Time) {
	setOnce(&m.causalLink, at)
}

// result resolves the competing workStart candidates and the queue fallback.
func (m *anchorMachine) result() Anchors {
	a := m.anchors
	if m.exactWorkStart != nil {
		a.WorkStart = m.exactWorkStart
	} else {
		a.WorkStart = m.fallbackWorkStart
	}
	if a.QueueEntry == nil && m.causalLink != nil {
		a.QueueEntry = m.causalLink
	}
	return a
}

func setOnce(dst **time.Time, at time.Time) {
	if *dst == nil {
		t := at
		*dst = &t
	}
}

// Reconstruct replays an issue's changelog into an ordered list of timeline
// events and the anchors derived from it. The input issue is not modified.
func Reconstruct(issue Issue, labels Labels) ([]TimelineEvent, Anchors) {
	entries := slices.Clone(issue.Changelog)
	slices.SortStableFunc(entries, func(a, b ChangelogEntry) int {
		return a.At.Compare(b.At)
	})

	status := initialStatus(entries, labels)
	dependency := ""
	events := []TimelineEvent{{At: issue.Created, Status: status}}
	machine := newAnchorMachine(labels)

	for _, entry := range entries {
		changed := false
		for _, c := range entry.Changes {
			if strings.EqualFold(c.Field, "status") {
				machine.transition(entry.At, c.From, c.To)
				if c.To != status {
					status = c.To
					changed = true
				}
			} else if labels.IsCausalLink(c) {
				machine.linked(entry.At)
			}

			// Any field, status included, may carry a dependency token.
			next := dependency
			if labels.IsDependency(c.To) {
				next = c.To
			} else if labels.IsDependency(c.From) {
				next = ""
			}
			if next != dependency {
				dependency = next
				changed = true
			}
		}

		if changed {
			at := entry.At
			if last := events[len(events)-1].At; at.Before(last) {
				at = last
			}
			events = append(events, TimelineEvent{At: at, Status: status, Dependency: dependency})
		}
	}

	anchors := machine.result()
	if anchors.Completion == nil && issue.Resolved != nil && labels.IsDone(issue.Status) {
		resolved := *issue.Resolved
		anchors.Completion = &resolved
	}

	return events, anchors
}

// initialStatus is the status the issue was created in: the origin of the
// earliest recorded status change, or the intake label when none exists.
func initialStatus(entries []ChangelogEntry, labels Labels) string {
	for _, entry := range entries {
		for _, c := range entry.Changes {
			if !strings.EqualFold(c.Field, "status") {
				continue
			}
			if c.From != "" {
				return c.From
			}
			return labels.Intake
		}
	}
	return labels.Intake
}

// EffectiveCreation is the instant the SLA considers the issue opened.
func EffectiveCreation(issue Issue, anchors Anchors) time.Time {
	if anchors.QueueEntry != nil {
		return *anchors.QueueEntry
	}
	return issue.Created
}
