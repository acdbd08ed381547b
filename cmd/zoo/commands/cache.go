package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/docker/model-zoo/pkg/weights/store"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the weights cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List cached weights",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheList(cmd, c)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := c.factoryConfig(nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.CacheDir)
				return nil
			},
		},
	)
	return cmd
}

func runCacheList(cmd *cobra.Command, c *cli) error {
	cfg, err := c.factoryConfig(nil)
	if err != nil {
		return err
	}
	st, err := store.New(store.Options{RootPath: cfg.CacheDir})
	if err != nil {
		return errors.Wrap(err, "opening weights cache")
	}
	entries, err := st.Entries()
	if err != nil {
		return errors.Wrap(err, "reading weights cache")
	}
	if len(entries) == 0 {
		cmd.Println("No cached weights")
		return nil
	}

	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithHeader([]string{"KEY", "REFERENCE", "FILES", "SIZE", "CREATED"}),
	)
	for _, e := range entries {
		row := []string{
			e.Key,
			e.Reference,
			strconv.Itoa(len(e.Files)),
			units.HumanSize(float64(e.TotalSize())),
			units.HumanDuration(time.Since(e.Created)) + " ago",
		}
		if err := table.Append(row); err != nil {
			return errors.Wrap(err, "rendering table")
		}
	}
	return table.Render()
}
