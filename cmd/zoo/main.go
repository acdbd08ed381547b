// zoo lists, loads and inspects the pretrained image classifiers of the
// model zoo.
package main

import (
	"fmt"
	"os"

	"github.com/docker/model-zoo/cmd/zoo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
