package quote

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Quotes"

// ExportXLSX writes the quote history as an Excel workbook, one row per
// quote with the headline numbers a shop owner cares about.
func ExportXLSX(w io.Writer, quotes []Quote) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("create export sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"ID", "Created At", "Filename", "Material", "Weight (g)", "Print Time (min)", "Subtotal", "Margin", "Total"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, q := range quotes {
		values := []any{
			q.ID,
			q.Timestamp.Format(time.RFC3339),
			q.Filename,
			q.Results.Pricing.Material.Type,
			q.Results.Pricing.Material.WeightG,
			q.Results.Pricing.PrintTime.Minutes,
			q.Results.Pricing.Costs.Subtotal,
			q.Results.Pricing.Costs.Margin,
			q.Results.Pricing.Costs.Total,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return fmt.Errorf("write quote row: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
