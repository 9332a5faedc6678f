package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildkiln/kiln/src/input"
	"github.com/buildkiln/kiln/src/pipeline"
	_ "github.com/buildkiln/kiln/src/pipeline/plugins"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List available plugins per phase",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := os.Stdout
		for _, phase := range pipeline.Phases {
			names := pipeline.All(phase)
			if len(names) == 0 {
				continue
			}
			fmt.Fprintf(w, "%s:\n", phase)
			for _, name := range names {
				fmt.Fprintf(w, "  %s\n", name)
			}
		}
		fmt.Fprintln(w, "input:")
		for _, name := range input.All() {
			fmt.Fprintf(w, "  %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
