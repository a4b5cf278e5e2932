// Package tracker ties the issue cache to the SLA engine: it resolves a
// source, brings it up to date and evaluates it at a single instant.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sla-mcp/internal/history"
	"sla-mcp/internal/sla"

	"github.com/rs/zerolog/log"
)

// ErrNoSource is returned when a query names neither a JQL nor a cached source.
var ErrNoSource = errors.New("a JQL query or a cached source is required")

// Query selects a set of issues. A JQL query is synced with Jira; a source
// without JQL is read from the cache only.
type Query struct {
	JQL    string `json:"jql,omitempty"`
	Source string `json:"source,omitempty"`
	// OpenOnly drops completed issues from the results, not from the totals.
	OpenOnly bool `json:"openOnly,omitempty"`
	// Priority keeps only results of this priority (case-insensitive).
	Priority string `json:"priority,omitempty"`
}

// IssueReport is the evaluation of one issue with its flattened history.
type IssueReport struct {
	Result    sla.Result          `json:"result"`
	Changelog []sla.ChangelogLine `json:"changelog"`
}

// Tracker evaluates sources of issues.
type Tracker struct {
	provider   *history.Provider
	engine     *sla.Engine
	workers    int
	defaultJQL string

	// Now is the evaluation instant of every call.
	Now func() time.Time
}

// New creates a tracker. defaultJQL applies to queries naming nothing.
func New(provider *history.Provider, engine *sla.Engine, workers int, defaultJQL string) *Tracker {
	return &Tracker{
		provider:   provider,
		engine:     engine,
		workers:    workers,
		defaultJQL: defaultJQL,
		Now:        time.Now,
	}
}

// Engine returns the engine used for evaluation.
func (t *Tracker) Engine() *sla.Engine {
	return t.engine
}

// resolve returns the source id of a query after bringing its cache up to date.
func (t *Tracker) resolve(ctx context.Context, q Query) (string, error) {
	jql := strings.TrimSpace(q.JQL)
	source := strings.TrimSpace(q.Source)
	if jql == "" && source == "" {
		jql = t.defaultJQL
	}
	if jql == "" && source == "" {
		return "", ErrNoSource
	}
	if source == "" {
		source = history.SourceID(jql)
	}

	if jql == "" || !t.provider.Online() {
		if err := t.provider.Load(source); err != nil {
			return "", fmt.Errorf("failed to load cached source %s: %w", source, err)
		}
		return source, nil
	}

	if err := t.provider.Hydrate(ctx, source, jql); err != nil {
		return "", err
	}
	return source, nil
}

// Report evaluates every issue of a query and aggregates the results.
func (t *Tracker) Report(ctx context.Context, q Query) (sla.Report, error) {
	source, err := t.resolve(ctx, q)
	if err != nil {
		return sla.Report{}, err
	}

	now := t.Now()
	issues := t.provider.Issues(source)
	results, err := t.engine.EvaluateAll(ctx, issues, now, t.workers)
	if err != nil {
		return sla.Report{}, err
	}

	label := q.JQL
	if label == "" {
		label = source
	}
	report := sla.BuildReport(label, results, t.engine.Policy(), now)
	report.Results = filter(report.Results, q)

	log.Info().
		Str("source", source).
		Str("runId", report.RunID).
		Int("issues", report.TotalIssues).
		Float64("compliance", report.CompliancePercent).
		Msg("SLA report built")
	return report, nil
}

// Issue evaluates a single issue, refreshing it from Jira when possible.
func (t *Tracker) Issue(ctx context.Context, q Query, key string) (IssueReport, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return IssueReport{}, fmt.Errorf("issue key is required")
	}

	source := strings.TrimSpace(q.Source)
	if source == "" {
		jql := strings.TrimSpace(q.JQL)
		if jql == "" {
			jql = t.defaultJQL
		}
		if jql == "" {
			source = "issues"
		} else {
			source = history.SourceID(jql)
		}
	}
	if err := t.provider.Load(source); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("Failed to load cached source")
	}

	issue, err := t.provider.Refresh(ctx, source, key)
	if err != nil {
		return IssueReport{}, err
	}

	return IssueReport{
		Result:    t.engine.Evaluate(issue, t.Now()),
		Changelog: sla.ChangelogEcho(issue),
	}, nil
}

// Breaches evaluates a query and returns the open results whose projected
// breach falls within horizon.
func (t *Tracker) Breaches(ctx context.Context, q Query, horizon time.Duration) ([]sla.Result, error) {
	report, err := t.Report(ctx, Query{JQL: q.JQL, Source: q.Source})
	if err != nil {
		return nil, err
	}
	return report.Breaches(report.GeneratedAt, horizon), nil
}

func filter(results []sla.Result, q Query) []sla.Result {
	if !q.OpenOnly && q.Priority == "" {
		return results
	}
	out := make([]sla.Result, 0, len(results))
	for _, r := range results {
		if q.OpenOnly && !r.Open {
			continue
		}
		if q.Priority != "" && !strings.EqualFold(r.Priority, q.Priority) {
			continue
		}
		out = append(out, r)
	}
	return out
}
