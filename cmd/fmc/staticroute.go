package main

import (
	"fmt"

	"FirepowerKit/internal/fmc"

	"github.com/spf13/cobra"
)

func newStaticRouteCmd(a *app) *cobra.Command {
	var route fmc.StaticRoute

	cmd := &cobra.Command{
		Use:   "static-route",
		Short: "Add an IPv4 static route to a managed device",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.AddStaticRoute(cmd.Context(), route)
			if err != nil {
				return apiError("failed to add static route", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Post was successful...")
			if id := resp.Get("id").Str; id != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Route id: %s\n", id)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&route.Device, "device", "d", "", "device name")
	f.StringVarP(&route.Interface, "interface", "i", "", "interface name")
	f.StringSliceVarP(&route.Networks, "network", "n", nil, "destination network object name (repeatable)")
	f.StringVarP(&route.Gateway, "gateway", "g", "", "gateway host object name")
	f.IntVarP(&route.Metric, "metric", "m", 1, "route metric")
	f.BoolVar(&route.Tunneled, "tunneled", false, "mark the route as tunneled")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagRequired("interface")
	cmd.MarkFlagRequired("network")
	cmd.MarkFlagRequired("gateway")
	return cmd
}
