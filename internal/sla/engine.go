package sla

import (
	"context"
	"runtime"
	"strings"
	"time"

	"sla-mcp/internal/calendar"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates issues against a policy. It holds no mutable state; one
// Engine may evaluate any number of issues concurrently.
type Engine struct {
	policy   Policy
	calendar *calendar.Calendar
}

// NewEngine creates an engine for the given policy and calendar.
func NewEngine(policy Policy, cal *calendar.Calendar) *Engine {
	return &Engine{policy: policy, calendar: cal}
}

// Policy returns the policy the engine evaluates against.
func (e *Engine) Policy() Policy {
	return e.policy
}

// CalendarPolicy selects the regime for one issue: continuous for the highest
// tier when the effective creation is on or after the cutover, bounded otherwise.
func (e *Engine) CalendarPolicy(tier string, effectiveCreation time.Time) calendar.Policy {
	regime := calendar.Bounded
	cutover := e.policy.ContinuousCutover
	if !cutover.IsZero() && strings.EqualFold(tier, e.policy.HighestTier()) && !effectiveCreation.Before(cutover) {
		regime = calendar.Continuous
	}
	return e.calendar.Policy(regime, e.policy.ExcludeLunch)
}

// Evaluate computes the SLA result of one issue. now is the single instant
// used both as the boundary for open issues and as the projection origin.
func (e *Engine) Evaluate(issue Issue, now time.Time) Result {
	labels := e.policy.Labels

	events, anchors := Reconstruct(issue, labels)
	tier := e.policy.ResolveTier(issue.Priority)
	cal := e.CalendarPolicy(tier, EffectiveCreation(issue, anchors))

	d := Accumulate(events, anchors, cal, labels, now)
	targets := e.policy.TargetsFor(tier, issue.IssueType)
	reactionMet, resolutionMet := Compliance(d, targets)

	paused := labels.IsPaused(events[len(events)-1])
	res := Result{
		Key:               issue.Key,
		Summary:           issue.Summary,
		Priority:          issue.Priority,
		IssueType:         issue.IssueType,
		Status:            issue.Status,
		Tier:              tier,
		Regime:            cal.Regime,
		Open:              anchors.Completion == nil,
		Paused:            anchors.Completion == nil && paused,
		ReactionMinutes:   round2(d.Reaction),
		ResolutionMinutes: round2(d.Resolution),
		PauseMinutes:      round2(d.Pause),
		ReactionTarget:    targets.Reaction,
		ResolutionTarget:  targets.Resolution,
		ReactionSLAMet:    reactionMet,
		ResolutionSLAMet:  resolutionMet,
		Anchors:           anchors,
		Breakdown:         d.Breakdown,
	}
	if !targets.ReactionConstrained {
		res.ReactionTarget = 0
	}

	if res.Open {
		proj := Project(anchors, d, targets, cal, paused, now)
		res.ReactionBreachAt = proj.ReactionBreachAt
		res.ResolutionBreachAt = proj.ResolutionBreachAt
	}

	log.Trace().
		Str("key", issue.Key).
		Str("tier", tier).
		Stringer("regime", cal.Regime).
		Float64("reaction", res.ReactionMinutes).
		Float64("resolution", res.ResolutionMinutes).
		Msg("Issue evaluated")

	return res
}

// EvaluateTabulated computes the SLA result of an issue whose per-status
// minutes were tabulated upstream. The intake column is the reaction time,
// active columns form the resolution time and pause columns are reported apart.
// No timeline or projection is involved.
func (e *Engine) EvaluateTabulated(issue TabulatedIssue) Result {
	labels := e.policy.Labels
	var d Durations
	raw := make(map[string]float64, len(issue.Minutes))

	for column, minutes := range issue.Minutes {
		raw[column] += minutes
		switch {
		case labels.IsIntake(column):
			d.Reaction += minutes
		case labels.IsActive(column):
			d.Resolution += minutes
		case containsFold(labels.Pause, column):
			d.Pause += minutes
		}
	}
	d.Breakdown = cleanBreakdown(raw)

	tier := e.policy.ResolveTier(issue.Priority)
	targets := e.policy.TargetsFor(tier, issue.IssueType)
	reactionMet, resolutionMet := Compliance(d, targets)

	res := Result{
		Key:               issue.Key,
		Summary:           issue.Summary,
		Priority:          issue.Priority,
		IssueType:         issue.IssueType,
		Status:            issue.Status,
		Tier:              tier,
		Regime:            calendar.Bounded,
		Open:              !labels.IsDone(issue.Status),
		ReactionMinutes:   round2(d.Reaction),
		ResolutionMinutes: round2(d.Resolution),
		PauseMinutes:      round2(d.Pause),
		ReactionTarget:    targets.Reaction,
		ResolutionTarget:  targets.Resolution,
		ReactionSLAMet:    reactionMet,
		ResolutionSLAMet:  resolutionMet,
		Breakdown:         d.Breakdown,
	}
	if !targets.ReactionConstrained {
		res.ReactionTarget = 0
	}
	return res
}

// EvaluateAll evaluates every issue whose type the policy allows, fanning out
// across at most `workers` goroutines (NumCPU when <= 0). Results keep the
// input order.
func (e *Engine) EvaluateAll(ctx context.Context, issues []Issue, now time.Time, workers int) ([]Result, error) {
	allowed := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		if e.policy.Allows(issue.IssueType) {
			allowed = append(allowed, issue)
		}
	}
	if skipped := len(issues) - len(allowed); skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("Issues filtered out by issue type")
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(allowed))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range allowed {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.Evaluate(allowed[i], now)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
