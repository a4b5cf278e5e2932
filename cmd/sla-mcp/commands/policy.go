package commands

import (
	"fmt"
	"os"

	"sla-mcp/internal/sla"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func policyCmd() *cobra.Command {
	var initFile, asJSON bool
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print the effective SLA policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := slaTracker.Engine().Policy()
			if asJSON {
				return printJSON(policy)
			}

			data, err := sla.MarshalPolicy(policy)
			if err != nil {
				return err
			}
			if !initFile {
				_, err = os.Stdout.Write(data)
				return err
			}

			if _, err := os.Stat(cfg.PolicyFile); err == nil {
				return fmt.Errorf("policy file %s already exists", cfg.PolicyFile)
			}
			if err := os.WriteFile(cfg.PolicyFile, data, 0644); err != nil {
				return fmt.Errorf("failed to write policy: %w", err)
			}
			log.Info().Str("path", cfg.PolicyFile).Msg("Policy file written")
			return nil
		},
	}
	cmd.Flags().BoolVar(&initFile, "init", false, "write the effective policy to SLA_POLICY_FILE")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the policy as JSON")
	return cmd
}
