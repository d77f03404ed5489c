package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/export"
)

var exportOutput string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <submission-id>",
	Short: "Write the current revisions of a submission to a workbook",
	Example: `  intake-service export 42
  intake-service export 42 --output ./out/widgets.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default submission-<id>.xlsx)")
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid submission id: %s", args[0])
	}

	sub, err := database.NewStore(database.Pool()).GetSubmission(cmd.Context(), id)
	if err != nil {
		return err
	}

	f, err := export.Workbook(sub)
	if err != nil {
		return err
	}
	defer f.Close()

	path := exportOutput
	if path == "" {
		path = export.Filename(sub)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.Info().Int64("submission", id).Int("products", len(sub.Products)).Str("file", path).Msg("Workbook written")
	return nil
}
