package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/docker/model-zoo/pkg/platform"
)

// Version information - these can be set at build time via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("zoo version %s\n", Version)
			cmd.Printf("  Git commit: %s\n", GitCommit)
			cmd.Printf("  Built:      %s\n", BuildDate)
			cmd.Printf("  Go version: %s\n", runtime.Version())
			cmd.Printf("  Platform:   %s\n", platform.String(platform.Default()))
		},
	}
}
