package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/docker/model-zoo/pkg/loader"
	"github.com/docker/model-zoo/pkg/zoo"
)

func newInspectCmd(c *cli) *cobra.Command {
	var tensors bool
	cmd := &cobra.Command{
		Use:   "inspect ARCHITECTURE",
		Short: "Build one model and describe it",
		Long: `Build a single architecture and print its input shape, preprocessing and
weights. With --tensors, list every tensor in the weight files.

Examples:
  zoo inspect ResNet50
  zoo inspect DenseNet121 --weights ./densenet121.safetensors --tensors`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, c, args[0], tensors)
		},
	}
	cmd.Flags().BoolVar(&tensors, "tensors", false, "List the tensors of the weight files")
	return cmd
}

func runInspect(cmd *cobra.Command, c *cli, name string, tensors bool) error {
	factory, err := c.newFactory(nil)
	if err != nil {
		return err
	}
	res := loader.Attempt[*zoo.Model](cmd.Context(), factory, name, c.loadOptions())
	if !res.OK() {
		return errors.Wrapf(res.Err, "loading %s (%s)", name, res.Kind)
	}

	out := cmd.OutOrStdout()
	if err := res.Model.Summary(out); err != nil {
		return err
	}
	if tensors && res.Model.Weights != nil {
		fmt.Fprintln(out)
		return printTensors(out, res.Model.Weights)
	}
	return nil
}

func printTensors(w io.Writer, weights *zoo.Weights) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"TENSOR", "DTYPE", "SHAPE", "ELEMENTS"}),
	)
	for _, t := range weights.Tensors {
		dims := make([]string, len(t.Shape))
		for i, d := range t.Shape {
			dims[i] = strconv.FormatInt(d, 10)
		}
		row := []string{t.Name, t.Dtype, "[" + strings.Join(dims, ", ") + "]", strconv.FormatInt(t.Elements(), 10)}
		if err := table.Append(row); err != nil {
			return errors.Wrap(err, "rendering table")
		}
	}
	return table.Render()
}
