package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sangukO/haru-word/internal/usecase"
)

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns a positive integer environment variable or a
// default value.
func getEnvIntOrDefault(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

type rootOptions struct {
	store    string
	table    string
	dsn      string
	path     string
	timezone string
	prefix   string
}

func (o *rootOptions) location() (*time.Location, error) {
	return time.LoadLocation(o.timezone)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "haruword-admin",
		Short: "Inspect and migrate 하루단어 AI usage data",
		Long: `haruword-admin reads the AI usage logs and daily visits that back the
sentence quota, from DynamoDB, PostgreSQL or a local SQLite file.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.store, "store", getEnvOrDefault("HARUWORD_STORE", storeDynamo), "Backing store: dynamodb, postgres or sqlite")
	root.PersistentFlags().StringVar(&opts.table, "table", os.Getenv("STATE_TABLE"), "DynamoDB table name")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	root.PersistentFlags().StringVar(&opts.path, "path", "haruword.db", "SQLite database file")
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", getEnvOrDefault("SERVICE_TIMEZONE", usecase.DefaultLocation), "Zone the daily quota resets in")
	root.PersistentFlags().StringVar(&opts.prefix, "table-prefix", "", "PostgreSQL table name prefix")

	root.AddCommand(
		newMigrateCmd(opts),
		newUsageCmd(opts),
		newLogsCmd(opts),
		newVisitsCmd(opts),
	)
	return root
}
