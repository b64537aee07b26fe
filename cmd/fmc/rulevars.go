package main

import (
	"fmt"
	"os"

	"FirepowerKit/internal/cli"
	"FirepowerKit/internal/fmc"

	"github.com/spf13/cobra"
)

func newRuleVarsCmd(a *app) *cobra.Command {
	var policy, mapFile string

	cmd := &cobra.Command{
		Use:   "rulevars",
		Short: "Set zones, intrusion policy and variable set on every rule of an access policy",
		Long: `Applies a rule map to an access policy, one line per rule in policy order:

    index;sourceZones;destinationZones[;ipsPolicy,variableSet]

Zones are comma separated; "any" clears the zone condition. The intrusion
policy and variable set may only be given for ALLOW rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(mapFile)
			if err != nil {
				return cli.Wrap(cli.ErrInput, "failed to open rule map", err)
			}
			entries, err := fmc.ParseRuleMap(f)
			f.Close()
			if err != nil {
				return cli.Wrap(cli.ErrInput, "error building rule map from "+mapFile, err)
			}

			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			n, err := c.SetRuleVars(cmd.Context(), policy, entries)
			if err != nil {
				return apiError(fmt.Sprintf("aborted after %d rules", n), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done! %d rules updated.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&policy, "policy", "n", "", "access policy name")
	cmd.Flags().StringVarP(&mapFile, "file", "f", "", "rule map file")
	cmd.MarkFlagRequired("policy")
	cmd.MarkFlagRequired("file")
	return cmd
}
