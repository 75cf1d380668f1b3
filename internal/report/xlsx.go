package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TrialBalanceSheet is the worksheet name used by WriteXLSX.
const TrialBalanceSheet = "Balance"

// WriteXLSX writes tb as a single-sheet workbook.
func WriteXLSX(w io.Writer, tb *TrialBalance) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TrialBalanceSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	sheet := TrialBalanceSheet

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	headers := []string{"Código", "Cuenta", "Naturaleza", "Saldo inicial", "Movimiento", "Saldo final"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	f.SetCellStyle(sheet, "A1", "F1", bold)

	for idx, r := range tb.Rows {
		row := idx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Code)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(r.Nature))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Opening.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.Movement.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.Closing.InexactFloat64())
	}

	total := len(tb.Rows) + 3
	f.SetCellValue(sheet, fmt.Sprintf("B%d", total), "Total deudor")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", total), tb.DebitTotal.InexactFloat64())
	f.SetCellValue(sheet, fmt.Sprintf("B%d", total+1), "Total acreedor")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", total+1), tb.CreditTotal.InexactFloat64())
	f.SetCellStyle(sheet, fmt.Sprintf("B%d", total), fmt.Sprintf("B%d", total+1), bold)

	f.SetCellStyle(sheet, "D2", fmt.Sprintf("F%d", total+1), money)
	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 36)
	f.SetColWidth(sheet, "C", "C", 12)
	f.SetColWidth(sheet, "D", "F", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
