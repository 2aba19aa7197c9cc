// Command gigctl runs the venue matcher and the event grouper offline
// against JSON files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gigctl",
		Short:         "Inspect venue resolution and event grouping offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newResolveCmd(), newGroupCmd(), newSimilarityCmd(), newDistanceCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
