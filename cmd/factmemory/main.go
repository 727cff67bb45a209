package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "factmemory",
	Short:   "Operate the FACT memory service from the command line",
	Long:    "factmemory manages the fact store and the cached read-only finance database: initialize configuration, validate and run SQL, warm the cache, and serve MCP tools.",
	Version: Version,
}
