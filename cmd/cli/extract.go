package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/intake-service/internal/ingestion/docx"
	"github.com/kosarica/intake-service/internal/parsers/sdt"
	"github.com/kosarica/intake-service/internal/pipeline"
)

var (
	extractOutput string
	extractDebug  bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file.docx>",
	Short: "Extract the tagged fields of a document without storing anything",
	Long: `Read a .docx file, collect its content controls and map them to a product
draft. The output shows the draft and, with --debug, the raw field map, every
label found and the labels that did not map to a product attribute.`,
	Example: `  intake-service extract ./SKU-12345.docx
  intake-service extract ./SKU-12345.docx --output json --debug`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractOutput, "output", "table", "Output format: table or json")
	extractCmd.Flags().BoolVar(&extractDebug, "debug", false, "Include the raw field map and labels")
}

func runExtract(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	logger.Info().Str("file", filePath).Msgf("Read %d bytes", len(content))

	intake := pipeline.New(docx.NewReader(readerOptions()), nil, nil, *logger)
	ext, err := intake.Preview(context.Background(), filepath.Base(filePath), content, extractDebug)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	switch strings.ToLower(extractOutput) {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ext)
	case "table":
		outputExtractTable(filePath, ext)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", extractOutput)
	}
}

func outputExtractTable(filePath string, ext *pipeline.Extraction) {
	d := ext.Draft
	fmt.Printf("\nExtraction Results for %s\n", filePath)
	fmt.Println(strings.Repeat("-", 60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Field\tValue\n")
	fmt.Fprintf(w, "-----\t-----\n")
	fmt.Fprintf(w, "SKU\t%s\n", d.Sku)
	fmt.Fprintf(w, "Product Name\t%s\n", d.ProductName)
	fmt.Fprintf(w, "On Sale\t%s\n", deref(d.OnSaleDate))
	fmt.Fprintf(w, "Off Sale\t%s\n", deref(d.OffSaleDate))
	fmt.Fprintf(w, "Recommendations\t%d\n", len(d.Recommendations))
	fmt.Fprintf(w, "Accessories\t%d\n", len(d.Accessories))
	fmt.Fprintf(w, "Cultures\t%d\n", len(d.Cultures))
	w.Flush()

	for _, warning := range ext.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}

	if len(ext.Fields) > 0 {
		labels := make([]string, 0, len(ext.Fields))
		for label := range ext.Fields {
			labels = append(labels, string(label))
		}
		sort.Strings(labels)

		fmt.Printf("\nRaw Fields (%d):\n", len(labels))
		fmt.Println(strings.Repeat("-", 60))
		for _, label := range labels {
			fmt.Printf("%s = %q\n", label, ext.Fields[sdt.Label(label)])
		}
	}
	if len(ext.Unmapped) > 0 {
		fmt.Printf("\nUnmapped labels: %v\n", ext.Unmapped)
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
