package sla

import (
	"time"

	"sla-mcp/internal/calendar"
)

// FieldChange is a single field edit inside a changelog entry.
// Missing values are carried as empty strings.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// ChangelogEntry is one audit-log record of an issue.
type ChangelogEntry struct {
	Author  string        `json:"author,omitempty"`
	At      time.Time     `json:"at"`
	Changes []FieldChange `json:"changes"`
}

// Issue is the tracker-independent view of a support issue and its history.
type Issue struct {
	Key       string           `json:"key"`
	Summary   string           `json:"summary,omitempty"`
	Priority  string           `json:"priority,omitempty"`
	Status    string           `json:"status"`
	IssueType string           `json:"issueType,omitempty"`
	Created   time.Time        `json:"created"`
	Resolved  *time.Time       `json:"resolved,omitempty"`
	Changelog []ChangelogEntry `json:"changelog,omitempty"`
}

// TimelineEvent marks the instant an issue entered a status/dependency combination.
type TimelineEvent struct {
	At         time.Time `json:"at"`
	Status     string    `json:"status"`
	Dependency string    `json:"dependency,omitempty"`
}

// Label is the breakdown bucket the event's time is booked under.
func (e TimelineEvent) Label() string {
	if e.Dependency != "" {
		return e.Dependency
	}
	return e.Status
}

// Anchors are the lifecycle instants SLA clocks start and stop on.
type Anchors struct {
	QueueEntry *time.Time `json:"queueEntry,omitempty"`
	WorkStart  *time.Time `json:"workStart,omitempty"`
	Completion *time.Time `json:"completion,omitempty"`
}

// Durations holds the accumulated working minutes for one issue.
type Durations struct {
	Breakdown  map[string]float64
	Reaction   float64
	Pause      float64
	Resolution float64
}

// Targets are the SLA allowances that apply to one issue, in working minutes.
type Targets struct {
	Reaction            float64 `json:"reaction"`
	Resolution          float64 `json:"resolution"`
	ReactionConstrained bool    `json:"reactionConstrained"`
}

// Result is the SLA evaluation of a single issue.
type Result struct {
	Key       string `json:"key"`
	Summary   string `json:"summary,omitempty"`
	Priority  string `json:"priority,omitempty"`
	IssueType string `json:"issueType,omitempty"`
	Status    string `json:"status"`
	Tier      string `json:"tier"`

	Regime calendar.Regime `json:"regime"`
	Open   bool            `json:"open"`
	Paused bool            `json:"paused,omitempty"`

	ReactionMinutes   float64 `json:"reactionMinutes"`
	ResolutionMinutes float64 `json:"resolutionMinutes"`
	PauseMinutes      float64 `json:"pauseMinutes"`

	ReactionTarget   float64 `json:"reactionTarget"`
	ResolutionTarget float64 `json:"resolutionTarget"`
	ReactionSLAMet   bool    `json:"reactionSlaMet"`
	ResolutionSLAMet bool    `json:"resolutionSlaMet"`

	Anchors   Anchors            `json:"anchors"`
	Breakdown map[string]float64 `json:"breakdown"`

	ReactionBreachAt   *time.Time `json:"reactionBreachAt,omitempty"`
	ResolutionBreachAt *time.Time `json:"resolutionBreachAt,omitempty"`
}

// TabulatedIssue is an issue whose per-status minutes were already computed
// by the tracker (e.g. a "time in status" export).
type TabulatedIssue struct {
	Key       string
	Summary   string
	Priority  string
	Status    string
	IssueType string
	Created   time.Time
	Minutes   map[string]float64
}
