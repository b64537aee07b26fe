package main

import (
	"fmt"
	"os"

	"FirepowerKit/internal/cli"
	"FirepowerKit/internal/fmc"

	"github.com/spf13/cobra"
)

func newImportObjectsCmd(a *app) *cobra.Command {
	var file, kind string

	cmd := &cobra.Command{
		Use:   "import-objects",
		Short: "Bulk create network or host objects from a name,value,description CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := fmc.ParseObjectKind(kind)
			if err != nil {
				return cli.Wrap(cli.ErrUsage, "invalid --type", err)
			}
			f, err := os.Open(file)
			if err != nil {
				return cli.Wrap(cli.ErrInput, "failed to open objects file", err)
			}
			rows, err := fmc.ReadObjectsCSV(f)
			f.Close()
			if err != nil {
				return cli.Wrap(cli.ErrInput, "invalid objects file", err)
			}

			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attempting to add %d objects from file %s ...\n", len(rows), file)
			sum, err := c.ImportObjects(cmd.Context(), rows, k)
			fmt.Fprintln(cmd.OutOrStdout(), sum)
			if err != nil {
				return apiError("import interrupted", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file with name,value,description rows")
	cmd.Flags().StringVarP(&kind, "type", "t", string(fmc.KindNetwork), "object type: network or host")
	cmd.MarkFlagRequired("file")
	return cmd
}
