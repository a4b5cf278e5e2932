package sla

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// PriorityStats aggregates results sharing a priority.
type PriorityStats struct {
	Priority          string  `json:"priority"`
	Tier              string  `json:"tier"`
	Total             int     `json:"total"`
	Met               int     `json:"met"`
	Missed            int     `json:"missed"`
	Open              int     `json:"open"`
	CompliancePercent float64 `json:"compliancePercent"`
	TargetPercent     float64 `json:"targetPercent,omitempty"`
	WithinTolerance   bool    `json:"withinTolerance"`
	AvgReaction       float64 `json:"avgReactionMinutes"`
	AvgResolution     float64 `json:"avgResolutionMinutes"`
}

// Report is the aggregate SLA view over a set of issues.
type Report struct {
	RunID                     string          `json:"runId"`
	Source                    string          `json:"source,omitempty"`
	GeneratedAt               time.Time       `json:"generatedAt"`
	TotalIssues               int             `json:"totalIssues"`
	OpenIssues                int             `json:"openIssues"`
	MetResolutionCount        int             `json:"metResolutionCount"`
	MissedResolutionCount     int             `json:"missedResolutionCount"`
	CompliancePercent         float64         `json:"compliancePercent"`
	ReactionMetCount          int             `json:"reactionMetCount"`
	ReactionCompliancePercent float64         `json:"reactionCompliancePercent"`
	PerPriority               []PriorityStats `json:"perPriority"`
	Results                   []Result        `json:"results"`
}

// BuildReport aggregates per-issue results. Results keep their given order.
// Compliance is taken over every result; an open issue counts as met while its
// resolution clock is within target at now.
func BuildReport(source string, results []Result, policy Policy, now time.Time) Report {
	r := Report{
		RunID:       uuid.NewString(),
		Source:      source,
		GeneratedAt: now,
		TotalIssues: len(results),
		Results:     results,
	}
	if r.Results == nil {
		r.Results = []Result{}
	}

	groups := make(map[string]*PriorityStats)
	sums := make(map[string][2]float64)

	for _, res := range results {
		if res.ResolutionSLAMet {
			r.MetResolutionCount++
		} else {
			r.MissedResolutionCount++
		}
		if res.ReactionSLAMet {
			r.ReactionMetCount++
		}
		if res.Open {
			r.OpenIssues++
		}

		g, ok := groups[res.Priority]
		if !ok {
			g = &PriorityStats{Priority: res.Priority, Tier: res.Tier}
			groups[res.Priority] = g
		}
		g.Total++
		if res.ResolutionSLAMet {
			g.Met++
		} else {
			g.Missed++
		}
		if res.Open {
			g.Open++
		}
		s := sums[res.Priority]
		s[0] += res.ReactionMinutes
		s[1] += res.ResolutionMinutes
		sums[res.Priority] = s
	}

	r.CompliancePercent = percent(r.MetResolutionCount, r.TotalIssues)
	r.ReactionCompliancePercent = percent(r.ReactionMetCount, r.TotalIssues)

	r.PerPriority = make([]PriorityStats, 0, len(groups))
	for name, g := range groups {
		g.CompliancePercent = percent(g.Met, g.Total)
		g.AvgReaction = round2(sums[name][0] / float64(g.Total))
		g.AvgResolution = round2(sums[name][1] / float64(g.Total))
		if target, ok := policy.Tolerance(g.Tier, g.Priority); ok {
			g.TargetPercent = target
			g.WithinTolerance = g.CompliancePercent+complianceEpsilon >= target
		} else {
			g.WithinTolerance = true
		}
		r.PerPriority = append(r.PerPriority, *g)
	}

	slices.SortFunc(r.PerPriority, func(a, b PriorityStats) int {
		if c := cmp.Compare(policy.TierRank(a.Tier), policy.TierRank(b.Tier)); c != 0 {
			return c
		}
		return cmp.Compare(a.Priority, b.Priority)
	})

	return r
}

// Breaches returns the open results whose projected breach falls within the
// horizon after now, ordered by the earliest projected instant.
func (r Report) Breaches(now time.Time, horizon time.Duration) []Result {
	limit := now.Add(horizon)
	var out []Result
	for _, res := range r.Results {
		if at := res.NextBreach(); at != nil && !at.After(limit) {
			out = append(out, res)
		}
	}
	slices.SortFunc(out, func(a, b Result) int {
		return a.NextBreach().Compare(*b.NextBreach())
	})
	return out
}

// NextBreach returns the earliest projected breach instant, if any.
func (r Result) NextBreach() *time.Time {
	switch {
	case r.ReactionBreachAt == nil:
		return r.ResolutionBreachAt
	case r.ResolutionBreachAt == nil:
		return r.ReactionBreachAt
	case r.ResolutionBreachAt.Before(*r.ReactionBreachAt):
		return r.ResolutionBreachAt
	default:
		return r.ReactionBreachAt
	}
}

// ChangelogLine is one field change flattened for display.
type ChangelogLine struct {
	At     time.Time `json:"at"`
	Author string    `json:"author,omitempty"`
	Field  string    `json:"field"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
}

// ChangelogEcho flattens an issue's history in ascending order.
func ChangelogEcho(issue Issue) []ChangelogLine {
	var lines []ChangelogLine
	for _, entry := range issue.Changelog {
		for _, c := range entry.Changes {
			lines = append(lines, ChangelogLine{At: entry.At, Author: entry.Author, Field: c.Field, From: c.From, To: c.To})
		}
	}
	slices.SortStableFunc(lines, func(a, b ChangelogLine) int {
		return a.At.Compare(b.At)
	})
	return lines
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
