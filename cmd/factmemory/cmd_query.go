package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facttools/factmemory/internal/config"
	"github.com/facttools/factmemory/internal/driver"
)

var (
	queryConfigPath string
	queryStatement  string
	queryWarm       []string
	queryStats      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [statement]",
	Short: "Run a read-only SQL statement against the finance database",
	Long:  "Runs a validated SELECT statement through the query cache and prints the result as JSON. The statement is given as an argument or via -q. Use --warm to pre-cache statements first and --stats to print driver metrics afterwards.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryConfigPath, "config", config.DefaultConfigFilename, "path to the configuration file")
	queryCmd.Flags().StringVarP(&queryStatement, "query", "q", "", "SQL statement to run")
	queryCmd.Flags().StringArrayVar(&queryWarm, "warm", nil, "statement to warm the cache with (repeatable)")
	queryCmd.Flags().BoolVar(&queryStats, "stats", false, "print driver metrics after the query")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	statement := queryStatement
	if len(args) == 1 {
		if statement != "" {
			return fmt.Errorf("statement given both as argument and via -q")
		}
		statement = args[0]
	}
	if statement == "" {
		return fmt.Errorf("no statement given (pass it as an argument or via -q)")
	}

	cfg, err := config.LoadConfigWithPath(queryConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	d := driver.NewDriver(cfg)
	if err := d.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize driver: %w", err)
	}
	defer d.Shutdown()

	if len(queryWarm) > 0 {
		result := d.WarmCache(queryWarm)
		fmt.Fprintf(cmd.OutOrStdout(), "Cache warming: %d/%d statements cached (%d tokens)\n",
			result.QueriesSuccessful, result.QueriesAttempted, result.TokensCached)
		for _, warmErr := range result.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  warm: %s\n", warmErr)
		}
	}

	resp, err := d.ProcessQuery(statement)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	output, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))

	if resp.Cached {
		fmt.Fprintf(cmd.OutOrStdout(), "Served from cache (%s)\n", resp.QueryID)
	}

	if queryStats {
		metrics := d.Metrics()
		fmt.Fprintf(cmd.OutOrStdout(), "Queries: %d total, %d failed\n", metrics.TotalQueries, metrics.FailedQueries)
		fmt.Fprintf(cmd.OutOrStdout(), "Cache: %d entries, %.1f%% hit rate\n", metrics.CacheEntries, metrics.CacheHitRate)
		fmt.Fprintf(cmd.OutOrStdout(), "Latency: %.2fms average\n", metrics.AvgQueryTimeMs)
	}
	return nil
}
