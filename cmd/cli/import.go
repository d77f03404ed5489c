package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/ingestion/docx"
	"github.com/kosarica/intake-service/internal/pipeline"
	"github.com/kosarica/intake-service/internal/storage"
)

var (
	importRequester string
	importNote      string
	importRequestID int64
	importNoArchive bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.docx>...",
	Short: "Import documents as new submissions",
	Long: `Extract each document and store it as a new submission with one product at
version 1. The original file is archived in the configured upload storage
unless --no-archive is given. A failing document does not stop the others.`,
	Example: `  intake-service import ./SKU-12345.docx --requester pat@example.com
  intake-service import ./docs/*.docx --request-id 7`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importRequester, "requester", "", "Requester recorded on the submission")
	importCmd.Flags().StringVar(&importNote, "note", "", "Note recorded on the submission")
	importCmd.Flags().Int64Var(&importRequestID, "request-id", 0, "Attach the submissions to an existing request")
	importCmd.Flags().BoolVar(&importNoArchive, "no-archive", false, "Do not archive the original files")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var archive storage.Storage
	if !importNoArchive {
		var err error
		if archive, err = storage.New(cfg.Storage); err != nil {
			return fmt.Errorf("failed to initialise upload storage: %w", err)
		}
	}

	intake := pipeline.New(docx.NewReader(readerOptions()), database.NewStore(database.Pool()), archive, *logger)

	input := pipeline.UploadInput{
		Requester: optionalFlag(importRequester),
		Note:      optionalFlag(importNote),
	}
	if importRequestID > 0 {
		input.RequestID = &importRequestID
	}

	var failed int
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("Failed to read file")
			failed++
			continue
		}

		input.Filename = filepath.Base(path)
		input.Content = content
		result, err := intake.Upload(ctx, input)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("Import failed")
			failed++
			continue
		}
		fmt.Printf("%s -> submission %d (sku %s)\n", path, result.Submission.ID, result.Submission.Products[0].Sku)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(args))
	}
	return nil
}

func optionalFlag(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
