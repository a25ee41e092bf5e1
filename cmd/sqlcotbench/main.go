package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sqlcotbench",
		Short:         "Benchmark chain-of-thought prompting strategies for text-to-SQL",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newRunCmd(), newStrategiesCmd(), newDatasetsCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
