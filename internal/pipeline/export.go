package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExportRowsToXLSX dumps sheet rows (header included) to a local
// workbook, used for offline backups of the GRN range.
func ExportRowsToXLSX(rows [][]string, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
