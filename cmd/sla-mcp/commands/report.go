package commands

import (
	"fmt"
	"os"
	"time"

	"sla-mcp/internal/sla"
	"sla-mcp/internal/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	var q tracker.Query
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Evaluate the SLA of every issue of a query and summarise compliance",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := slaTracker.Report(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(report)
			}
			renderSummary(os.Stdout, report)
			renderResults(os.Stdout, report.Results)
			return nil
		},
	}
	queryFlags(cmd, &q)
	cmd.Flags().BoolVar(&q.OpenOnly, "open", false, "list open issues only")
	cmd.Flags().StringVar(&q.Priority, "priority", "", "list issues of this priority only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func issueCmd() *cobra.Command {
	var q tracker.Query
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "issue KEY",
		Short: "Explain the SLA evaluation of a single issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ir, err := slaTracker.Issue(cmd.Context(), q, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(ir)
			}
			renderIssue(ir)
			return nil
		},
	}
	queryFlags(cmd, &q)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the evaluation as JSON")
	return cmd
}

func renderIssue(ir tracker.IssueReport) {
	r := ir.Result
	renderResults(os.Stdout, []sla.Result{r})

	anchors := newTable(os.Stdout)
	anchors.SetTitle("Anchors")
	anchors.AppendRow(table.Row{"Queue entry", fmtTime(r.Anchors.QueueEntry)})
	anchors.AppendRow(table.Row{"Work start", fmtTime(r.Anchors.WorkStart)})
	anchors.AppendRow(table.Row{"Completion", fmtTime(r.Anchors.Completion)})
	anchors.AppendRow(table.Row{"Paused minutes", fmtMinutes(r.PauseMinutes)})
	anchors.Render()

	breakdown := newTable(os.Stdout)
	breakdown.SetTitle("Minutes per status")
	breakdown.AppendHeader(table.Row{"Status", "Minutes"})
	for label, minutes := range r.Breakdown {
		breakdown.AppendRow(table.Row{label, minutes})
	}
	breakdown.SortBy([]table.SortBy{{Name: "Minutes", Mode: table.DscNumeric}})
	breakdown.Render()

	changelog := newTable(os.Stdout)
	changelog.SetTitle("Changelog")
	changelog.AppendHeader(table.Row{"At", "Author", "Field", "From", "To"})
	for _, line := range ir.Changelog {
		at := line.At
		changelog.AppendRow(table.Row{fmtTime(&at), line.Author, line.Field, line.From, line.To})
	}
	changelog.Render()
}

func breachesCmd() *cobra.Command {
	var q tracker.Query
	var horizon time.Duration
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "breaches",
		Short: "List open issues projected to breach within the horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if horizon <= 0 {
				horizon = cfg.BreachHorizon
			}
			breaches, err := slaTracker.Breaches(cmd.Context(), q, horizon)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(breaches)
			}
			if len(breaches) == 0 {
				fmt.Printf("No breach projected within %s\n", horizon)
				return nil
			}
			renderResults(os.Stdout, breaches)
			return nil
		},
	}
	queryFlags(cmd, &q)
	cmd.Flags().DurationVar(&horizon, "horizon", 0, "look-ahead (defaults to SLA_BREACH_HORIZON)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the breaches as JSON")
	return cmd
}
