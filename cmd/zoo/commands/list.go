package commands

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

func newListCmd(c *cli) *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the architectures in the catalog",
		Long: `List every architecture in declaration order with its input size and
the repository its ImageNet weights come from.

Examples:
  zoo list
  zoo list --family efficientnet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, c, catalog.Family(family))
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "Only list architectures of this family")
	return cmd
}

func runList(cmd *cobra.Command, c *cli, family catalog.Family) error {
	cat, err := c.catalog()
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithHeader([]string{"ARCHITECTURE", "FAMILY", "INPUT", "WEIGHTS"}),
	)
	for _, a := range cat.Architectures() {
		if family != "" && a.Family != family {
			continue
		}
		repo := a.Repository
		if repo == "" {
			repo = "-"
		}
		if err := table.Append([]string{a.Name, string(a.Family), strconv.Itoa(a.InputSize), repo}); err != nil {
			return errors.Wrap(err, "rendering table")
		}
	}
	return table.Render()
}
