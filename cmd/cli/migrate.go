package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosarica/intake-service/internal/database"
)

var migratePrint bool

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the intake schema to the configured database. Every statement is
idempotent so the command is safe to run against an existing database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(cmd.Context(), database.Pool()); err != nil {
			return err
		}
		logger.Info().Msg("Schema applied")
		return nil
	},
}

// schemaCmd prints the schema without touching a database
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the database schema",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(database.Schema())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(schemaCmd)
}
