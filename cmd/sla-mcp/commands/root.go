package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sla-mcp/internal/config"
	"sla-mcp/internal/history"
	"sla-mcp/internal/jira"
	"sla-mcp/internal/logging"
	"sla-mcp/internal/mcp"
	"sla-mcp/internal/tracker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose    bool
	cfg        *config.AppConfig
	slaTracker *tracker.Tracker
)

var rootCmd = &cobra.Command{
	Use:   "sla-mcp",
	Short: "SLA-MCP measures Jira support SLAs on business and continuous calendars",
	Long: `A specialized MCP Server and CLI that reconstructs issue timelines from Jira changelogs
and measures reaction and resolution time against tiered SLA targets, on a business-hours
calendar or a 24/7 clock, projecting upcoming breaches.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		engine, err := cfg.Engine()
		if err != nil {
			return fmt.Errorf("failed to load SLA policy: %w", err)
		}

		var client jira.Client
		if cfg.JiraConfigured() {
			client = jira.NewClient(cfg.Jira)
		} else {
			log.Info().Msg("Jira not configured or offline mode, serving cached sources only")
		}

		provider := history.NewProvider(client, history.NewStore(), cfg.CacheDir)
		slaTracker = tracker.New(provider, engine, cfg.Workers, cfg.JQL)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("SLA-MCP starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(slaTracker, cfg.BreachHorizon, Version)
		return server.Serve(cmd.Context())
	},
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(reportCmd(), issueCmd(), breachesCmd(), csvCmd(), policyCmd(), watchCmd(), versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sla-mcp %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}
