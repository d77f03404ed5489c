package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/kosarica/intake-service/config"
)

var dbcheckTimeout time.Duration

// dbcheckCmd verifies the database is reachable with a plain driver
// connection, independent of the pool settings
var dbcheckCmd = &cobra.Command{
	Use:   "dbcheck",
	Short: "Check that the configured database accepts connections",
	Args:  cobra.NoArgs,
	RunE:  runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbcheckCmd)

	dbcheckCmd.Flags().DurationVar(&dbcheckTimeout, "timeout", 5*time.Second, "Connection timeout")
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), dbcheckTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping error: %w", err)
	}

	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("version query failed: %w", err)
	}

	fmt.Println("Connection successful")
	fmt.Println(version)
	return nil
}
