package main

import (
	"fmt"

	"FirepowerKit/internal/cli"
	"FirepowerKit/internal/fmc"

	"github.com/spf13/cobra"
)

func newComplexityCmd(a *app) *cobra.Command {
	var (
		policyID    string
		policyName  string
		ruleID      string
		incremental int
	)

	cmd := &cobra.Command{
		Use:   "complexity",
		Short: "Compute the expansion complexity of access rules",
		Long: `Prints, per rule, the number of source and destination zones, networks
and destination ports, and their product. Without --rule every rule of the
policy is crawled. With --rule and --incremental N, N rules are crawled
starting at --rule by incrementing the last group of the rule id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if policyID == "" && policyName == "" {
				return cli.NewAppError(cli.ErrUsage, "either --policy-id or --policy is required")
			}
			if incremental > 0 && ruleID == "" {
				return cli.NewAppError(cli.ErrUsage, "--incremental needs --rule to start from")
			}

			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			if policyID == "" {
				ref, err := c.FindByName(ctx, fmc.ResourceAccessPolicies, policyName)
				if err != nil {
					return apiError("failed to resolve policy", err)
				}
				policyID = ref.ID
			}

			out := cmd.OutOrStdout()
			crawler := fmc.NewCrawler(c, policyID, a.cfg.FMC.RequestDelay)
			emit := func(rc fmc.RuleComplexity) error {
				_, err := fmt.Fprintln(out, rc.Row())
				return err
			}

			fmt.Fprintln(out, "==== Policy Complexity Summary ====")
			fmt.Fprintln(out, fmc.ComplexityHeader)
			switch {
			case incremental > 0:
				err = crawler.Incremental(ctx, ruleID, incremental, emit)
			case ruleID != "":
				var rc fmc.RuleComplexity
				if rc, err = crawler.Rule(ctx, ruleID); err == nil {
					err = emit(rc)
				}
			default:
				err = crawler.All(ctx, emit)
			}
			return apiError("complexity crawl failed", err)
		},
	}
	cmd.Flags().StringVar(&policyID, "policy-id", "", "access policy id")
	cmd.Flags().StringVar(&policyName, "policy", "", "access policy name")
	cmd.Flags().StringVarP(&ruleID, "rule", "r", "", "single rule id, or the first id with --incremental")
	cmd.Flags().IntVar(&incremental, "incremental", 0, "number of rules to crawl by incrementing the rule id")
	return cmd
}
