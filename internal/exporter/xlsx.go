package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"dailyindex/internal/indexdata"
)

// SheetName is the worksheet holding an XLSX export.
const SheetName = "Indices"

// WriteXLSX writes the table to a workbook with a single Indices sheet.
// Values are stored as text so they survive unchanged.
func WriteXLSX(w io.Writer, t *indexdata.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	for i, record := range rows(t) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}
