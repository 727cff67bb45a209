package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facttools/factmemory/internal/config"
	"github.com/facttools/factmemory/internal/db"
	"github.com/facttools/factmemory/internal/driver"
)

var validateConfigPath string

var validateCmd = &cobra.Command{
	Use:   "validate [statement]",
	Short: "Validate the environment, or a single SQL statement",
	Long:  "With no arguments, brings up the finance database and query cache and reports driver metrics, exiting non-zero when any component fails. With a statement argument, runs only the static read-only SQL validator.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", config.DefaultConfigFilename, "path to the configuration file")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		// Static check only; the database file is never opened.
		database := db.NewManager(config.DefaultDatabasePath)
		if err := database.ValidateSQLQuery(args[0]); err != nil {
			return fmt.Errorf("statement rejected: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Statement is valid")
		return nil
	}

	cfg, err := config.LoadConfigWithPath(validateConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	d := driver.NewDriver(cfg)
	if err := d.Initialize(); err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}
	defer d.Shutdown()

	info, err := d.Database().GetDatabaseInfo()
	if err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}

	metrics := d.Metrics()
	fmt.Fprintf(cmd.OutOrStdout(), "Finance database: %s (%d tables)\n", info.DatabasePath, info.TotalTables)
	fmt.Fprintf(cmd.OutOrStdout(), "Cache: %d entries\n", metrics.CacheEntries)
	fmt.Fprintf(cmd.OutOrStdout(), "Driver initialized: %t\n", metrics.Initialized)
	fmt.Fprintln(cmd.OutOrStdout(), "Environment OK")
	return nil
}
