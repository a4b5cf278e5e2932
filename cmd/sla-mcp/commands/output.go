package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"sla-mcp/internal/sla"
	"sla-mcp/internal/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// queryFlags binds the flags that select a set of issues.
func queryFlags(cmd *cobra.Command, q *tracker.Query) {
	cmd.Flags().StringVar(&q.JQL, "jql", "", "JQL selecting the issues (defaults to SLA_JQL)")
	cmd.Flags().StringVar(&q.Source, "source", "", "cached source id, read without contacting Jira")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(out io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	return tw
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func fmtMinutes(m float64) string {
	if m == 0 {
		return "0m"
	}
	h, rest := int(m)/60, m-float64(int(m)/60*60)
	if h == 0 {
		return fmt.Sprintf("%.0fm", rest)
	}
	return fmt.Sprintf("%dh%02.0fm", h, rest)
}

func fmtMet(met bool) string {
	if met {
		return text.FgGreen.Sprint("met")
	}
	return text.FgRed.Sprint("missed")
}

func renderResults(out io.Writer, results []sla.Result) {
	tw := newTable(out)
	tw.AppendHeader(table.Row{"Key", "Priority", "Tier", "Regime", "Status", "Reaction", "", "Resolution", "", "Next breach"})
	for _, r := range results {
		status := r.Status
		if r.Paused {
			status += " (paused)"
		}
		tw.AppendRow(table.Row{
			r.Key, r.Priority, r.Tier, r.Regime, status,
			fmtMinutes(r.ReactionMinutes) + " / " + fmtMinutes(r.ReactionTarget), fmtMet(r.ReactionSLAMet),
			fmtMinutes(r.ResolutionMinutes) + " / " + fmtMinutes(r.ResolutionTarget), fmtMet(r.ResolutionSLAMet),
			fmtTime(r.NextBreach()),
		})
	}
	tw.Render()
}

func renderSummary(out io.Writer, report sla.Report) {
	tw := newTable(out)
	tw.SetTitle(fmt.Sprintf("%s | %d issues, %d open | resolution %.1f%% | reaction %.1f%%",
		report.Source, report.TotalIssues, report.OpenIssues, report.CompliancePercent, report.ReactionCompliancePercent))
	tw.AppendHeader(table.Row{"Priority", "Tier", "Total", "Met", "Missed", "Open", "Compliance", "Target", "Avg reaction", "Avg resolution"})
	for _, p := range report.PerPriority {
		target := "-"
		if p.TargetPercent > 0 {
			target = fmt.Sprintf("%.0f%%", p.TargetPercent)
		}
		compliance := fmt.Sprintf("%.1f%%", p.CompliancePercent)
		if p.TargetPercent > 0 && !p.WithinTolerance {
			compliance = text.FgRed.Sprint(compliance)
		}
		tw.AppendRow(table.Row{
			p.Priority, p.Tier, p.Total, p.Met, p.Missed, p.Open, compliance, target,
			fmtMinutes(p.AvgReaction), fmtMinutes(p.AvgResolution),
		})
	}
	tw.Render()
}
