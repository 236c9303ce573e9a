package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"pilotage-service/internal/rules"
)

func rulesCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective classification rules",
		Long:  `Print the rule set the engine would use, as JSON. Without --rules the built-in rules are shown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ruleSet, err := rules.LoadRuleSet(rulesFile)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ruleSet)
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "YAML rule set to validate and print")
	return cmd
}
