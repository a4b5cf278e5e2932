package commands

import (
	"time"

	"sla-mcp/internal/jobs"
	"sla-mcp/internal/notify"
	"sla-mcp/internal/tracker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var q tracker.Query
	var schedule string
	var horizon time.Duration
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically check a query and notify projected breaches",
		Long: `Re-evaluates the query on a cron schedule (SLA_WATCH_SCHEDULE) and posts breaches due
within the horizon to SLA_WEBHOOK_URL. Without a webhook the breaches are logged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = cfg.WatchSchedule
			}
			if horizon <= 0 {
				horizon = cfg.BreachHorizon
			}

			var notifier notify.Notifier = notify.LogNotifier{}
			if cfg.WebhookURL != "" {
				notifier = notify.NewWebhookNotifier(cfg.WebhookURL)
			}

			loc, err := slaTracker.Engine().Policy().Location()
			if err != nil {
				return err
			}

			w, err := jobs.NewWatcher(slaTracker, notify.NewDispatcher(notifier), q, horizon, schedule, loc)
			if err != nil {
				return err
			}

			if once {
				_, err := w.Check(cmd.Context())
				return err
			}

			log.Info().Str("schedule", schedule).Dur("horizon", horizon).Bool("webhook", cfg.WebhookURL != "").Msg("Watching for SLA breaches")
			w.Start()
			<-cmd.Context().Done()
			w.Stop()
			log.Info().Msg("Watch stopped")
			return nil
		},
	}
	queryFlags(cmd, &q)
	cmd.Flags().StringVar(&schedule, "schedule", "", "five-field cron schedule (defaults to SLA_WATCH_SCHEDULE)")
	cmd.Flags().DurationVar(&horizon, "horizon", 0, "look-ahead (defaults to SLA_BREACH_HORIZON)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single check and exit")
	return cmd
}
