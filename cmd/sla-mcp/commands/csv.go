package commands

import (
	"fmt"
	"os"
	"time"

	"sla-mcp/internal/csvimport"
	"sla-mcp/internal/sla"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func csvCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "csv FILE",
		Short: "Evaluate a time-in-status CSV export",
		Long: `Evaluates an export holding one row per issue and one column of minutes per status.
Timelines are not reconstructed: the per-status minutes are summed directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := csvimport.ParseFile(args[0])
			if err != nil {
				return err
			}
			if doc.Skipped > 0 {
				log.Warn().Int("rows", doc.Skipped).Str("file", args[0]).Msg("Skipped short rows")
			}

			engine := slaTracker.Engine()
			results := csvimport.Evaluate(engine, doc)
			report := sla.BuildReport(args[0], results, engine.Policy(), time.Now())
			if asJSON {
				return printJSON(report)
			}
			renderSummary(os.Stdout, report)
			renderResults(os.Stdout, report.Results)
			fmt.Printf("%d status columns: %v\n", len(doc.StatusColumns), doc.StatusColumns)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
