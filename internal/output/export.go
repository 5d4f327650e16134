// Package output writes catalog snapshots to export files.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shelfmark/shelfmark/internal/catalog"
)

// ExportFormat selects the export file type.
type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatCSV  ExportFormat = "csv"
)

// FormatForPath infers the export format from a file extension.
func FormatForPath(path string) (ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export extension for %q (want .xlsx or .csv)", path)
	}
}

var exportHeaders = []string{
	"id", "source_id", "source_url", "title", "author", "price",
	"image_url", "created_at", "updated_at",
}

// Export writes the products to the given path in the given format.
func Export(path string, format ExportFormat, products []catalog.Product) error {
	switch format {
	case FormatXLSX:
		return exportXLSX(path, products)
	case FormatCSV:
		return exportCSV(path, products)
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}

func exportRow(p catalog.Product) []string {
	author, price, image := "", "", ""
	if p.Author != nil {
		author = *p.Author
	}
	if p.Price != nil {
		price = strconv.FormatFloat(*p.Price, 'f', 2, 64)
	}
	if p.ImageURL != nil {
		image = *p.ImageURL
	}
	return []string{
		p.ID, p.SourceID, p.SourceURL, p.Title, author, price, image,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	}
}

func exportXLSX(path string, products []catalog.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Products"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, p := range products {
		for col, value := range exportRow(p) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func exportCSV(path string, products []catalog.Product) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, p := range products {
		if err := w.Write(exportRow(p)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	return w.Error()
}
