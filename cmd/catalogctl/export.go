package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/services"
)

var (
	exportOut    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every evaluation joined with its asset",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or json")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := parseExportFormat(exportFormat)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	catalog := application.Services.Catalog
	if format == "json" {
		rows, err := catalog.ExportEvaluations(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(w, rows)
	}
	return services.WriteExportCSV(cmd.Context(), catalog, w)
}

func parseExportFormat(raw string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(raw)); f {
	case "", "csv":
		return "csv", nil
	case "json":
		return "json", nil
	default:
		return "", domainagg.Validation("export.format", fmt.Sprintf("unsupported format %q", raw))
	}
}
