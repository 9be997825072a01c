// Command desimctl is a thin embedder exercising the simulator package end
// to end: load a script, optionally create resources, run to a horizon,
// and print the final stats snapshot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "desimctl",
		Short: "Drive the discrete-event simulation kernel from the command line",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
