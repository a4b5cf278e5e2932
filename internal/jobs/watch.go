// Package jobs schedules the periodic breach check.
package jobs

import (
	"context"
	"fmt"
	"time"

	"sla-mcp/internal/notify"
	"sla-mcp/internal/tracker"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// checkTimeout bounds one scheduled run, Jira sync included.
const checkTimeout = 5 * time.Minute

// Watcher re-evaluates a query on a cron schedule and notifies upcoming breaches.
type Watcher struct {
	tracker    *tracker.Tracker
	dispatcher *notify.Dispatcher
	query      tracker.Query
	horizon    time.Duration
	c          *cron.Cron
}

// NewWatcher parses a five-field cron schedule interpreted in loc.
func NewWatcher(t *tracker.Tracker, d *notify.Dispatcher, q tracker.Query, horizon time.Duration, schedule string, loc *time.Location) (*Watcher, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	w := &Watcher{tracker: t, dispatcher: d, query: q, horizon: horizon, c: c}
	if _, err := c.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}
	return w, nil
}

func (w *Watcher) Start() { w.c.Start() }

// Stop halts the schedule and waits for a running check to finish.
func (w *Watcher) Stop() {
	<-w.c.Stop().Done()
}

func (w *Watcher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	if _, err := w.Check(ctx); err != nil {
		log.Error().Err(err).Msg("watch: check failed")
	}
}

// Check evaluates the query once and dispatches the breaches due within the
// horizon of the report's evaluation instant. It returns how many
// notifications were sent.
func (w *Watcher) Check(ctx context.Context) (int, error) {
	report, err := w.tracker.Report(ctx, tracker.Query{JQL: w.query.JQL, Source: w.query.Source})
	if err != nil {
		return 0, err
	}

	now := report.GeneratedAt
	limit := now.Add(w.horizon)
	var due []notify.Breach
	for _, b := range notify.FromResults(report.Breaches(now, w.horizon)) {
		if !b.At.After(limit) {
			due = append(due, b)
		}
	}

	sent, err := w.dispatcher.Dispatch(ctx, due, now)
	if err != nil {
		return 0, fmt.Errorf("failed to notify breaches: %w", err)
	}
	log.Info().Int("due", len(due)).Int("sent", sent).Msg("watch: check complete")
	return sent, nil
}
