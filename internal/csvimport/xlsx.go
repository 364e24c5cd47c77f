package csvimport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ecotermo/internal/asset"
)

// SheetName is the worksheet written by ExportXLSX.
const SheetName = "Ativos"

// ExportXLSX writes records to a single-sheet workbook using the same header
// and row layout as ExportCSV.
func ExportXLSX(w io.Writer, records []asset.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(ExportHeader)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(ExportRow(r))); err != nil {
			return fmt.Errorf("writing record %q: %w", r.Tag, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
