package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

func newSpecsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "specs",
		Short: "List the C runtime specifications usable with --libc-spec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Spec", "Version", "Checked functions"})
			table.SetAlignment(tablewriter.ALIGN_LEFT)

			for _, spec := range entities.AllLibcSpecs() {
				name := string(spec)
				if spec == entities.DefaultLibcSpec {
					name += " (always checked)"
				}
				table.Append([]string{name, spec.Version(), strconv.Itoa(len(spec.FunctionsWithCheckedVersions()))})
			}

			table.Render()
			return nil
		},
	}
}
