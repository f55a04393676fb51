package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
)

// Sheet names in exported workbooks.
const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

const domainColumnWidth = 40

// NewWorkbook builds a workbook with a Results sheet and a Summary sheet.
// The caller must Close it.
func NewWorkbook(records domain.Records) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fillWorkbook(f, records); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func fillWorkbook(f *excelize.File, records domain.Records) error {
	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(ResultsSheet, "A1", &[]any{"Domain", "Status"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &[]any{r.Domain, r.Status.String()}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetCellStyle(ResultsSheet, "A1", "B1", header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(ResultsSheet, "A", "A", domainColumnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if len(records) > 0 {
		if err := f.AutoFilter(ResultsSheet, fmt.Sprintf("A1:B%d", len(records)+1), nil); err != nil {
			return fmt.Errorf("add filter: %w", err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &[]any{"Status", "Count"}); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	row := 2
	for _, sc := range Summarize(records) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SummarySheet, cell, &[]any{sc.Status.String(), sc.Count}); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
		row++
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(SummarySheet, cell, &[]any{"total", len(records)}); err != nil {
		return fmt.Errorf("write summary total: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", header); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	return nil
}

// WriteXLSX saves records as a workbook at path.
func WriteXLSX(path string, records domain.Records) error {
	f, err := NewWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
