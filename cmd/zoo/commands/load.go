package commands

import (
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/docker/model-zoo/internal/utils"
	"github.com/docker/model-zoo/pkg/loader"
	"github.com/docker/model-zoo/pkg/metrics"
	"github.com/docker/model-zoo/pkg/zoo"
)

type loadOptions struct {
	metricsFile string
	progress    bool
	strict      bool
}

func newLoadCmd(c *cli) *cobra.Command {
	var opts loadOptions
	cmd := &cobra.Command{
		Use:   "load [ARCHITECTURE...]",
		Short: "Build models and report which ones loaded",
		Long: `Build the given architectures, or the whole catalog when none are given,
in declaration order. A failing architecture is reported and skipped.

Examples:
  zoo load
  zoo load ResNet50 VGG16 --weights none
  zoo load --source oci --mirror registry.example.com/zoo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, c, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write prometheus metrics to this file")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Print download progress as JSON lines on stderr")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit with an error if any architecture fails to load")
	return cmd
}

func runLoad(cmd *cobra.Command, c *cli, names []string, opts loadOptions) error {
	var progress io.Writer
	if opts.progress {
		progress = cmd.ErrOrStderr()
	}
	factory, err := c.newFactory(progress)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = factory.Catalog().Names()
	}

	recorder := metrics.NewRecorder()
	registry, results := loader.Load[*zoo.Model](cmd.Context(), factory, names, c.loadOptions(),
		loader.WithLogger(c.log.WithField("component", "loader")),
		loader.WithObserver(recorder.Observe),
	)
	recorder.SetRegistrySize(registry.Len())

	if err := printResults(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	s := loader.Summarize(results)
	fmt.Fprintf(cmd.OutOrStdout(), "\nLoaded %d of %d (%d transient, %d permanent, %d canceled failures)\n",
		s.Loaded, len(results), s.Transient, s.Permanent, s.Canceled)

	if opts.metricsFile != "" {
		if err := recorder.WriteTextfile(opts.metricsFile); err != nil {
			return errors.Wrapf(err, "writing metrics to %s", opts.metricsFile)
		}
	}
	if opts.strict && s.Failed > 0 {
		return errors.Errorf("%d of %d architectures failed to load", s.Failed, len(results))
	}
	return nil
}

func printResults(w io.Writer, results []loader.Result[*zoo.Model]) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"ARCHITECTURE", "STATUS", "KIND", "DURATION", "DETAIL"}),
	)
	for _, r := range results {
		status, detail := "loaded", ""
		if r.OK() {
			detail = zoo.Describe(r.Model)
		} else {
			status = "failed"
			detail = utils.SanitizeForLog(r.Err.Error())
		}
		row := []string{r.Name, status, r.Kind.String(), units.HumanDuration(r.Duration), detail}
		if err := table.Append(row); err != nil {
			return errors.Wrap(err, "rendering table")
		}
	}
	return table.Render()
}
