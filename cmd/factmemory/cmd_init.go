package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facttools/factmemory"
	"github.com/facttools/factmemory/internal/config"
	"github.com/facttools/factmemory/internal/db"
)

var (
	initConfigPath string
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file and seed the finance database",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initConfigPath, "config", config.DefaultConfigFilename, "path to write the configuration file")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing configuration file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(initConfigPath); err == nil && !initForce {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", initConfigPath)
	}

	cfg := factmemory.DefaultConfig()
	if err := cfg.SaveToFile(initConfigPath); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", initConfigPath)

	// Seed the finance database so the first query doesn't pay for it.
	database := db.NewManager(cfg.Database.Path)
	if err := database.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize finance database: %w", err)
	}
	defer database.Close()

	info, err := database.GetDatabaseInfo()
	if err != nil {
		return fmt.Errorf("failed to inspect finance database: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Finance database ready at %s (%d tables)\n", info.DatabasePath, info.TotalTables)
	for name, rows := range info.Tables {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d rows\n", name, rows)
	}
	return nil
}
