// Package export renders office data as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// EmployeeSheet is the name of the worksheet written by WriteEmployees.
const EmployeeSheet = "Employees"

// EmployeeHeader lists the columns of the employee export.
var EmployeeHeader = []string{
	"Last Name",
	"First Name",
	"Position",
	"Gender",
	"Desk",
	"Hire Date",
	"Experience (days)",
	"Skills",
}

var employeeColumnWidths = []float64{20, 20, 12, 10, 10, 12, 18, 40}

// EmployeeRow is one line of the employee export.
type EmployeeRow struct {
	LastName       string
	FirstName      string
	Position       string
	Gender         string
	DeskNumber     string
	HireDate       time.Time
	ExperienceDays int
	Skills         string
}

// WriteEmployees writes rows as an XLSX workbook with a bold header row.
func WriteEmployees(w io.Writer, rows []EmployeeRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(EmployeeSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range EmployeeHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(EmployeeSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(EmployeeSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(EmployeeSheet, name, name, employeeColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		values := []any{
			row.LastName,
			row.FirstName,
			row.Position,
			row.Gender,
			row.DeskNumber,
			row.HireDate.Format("2006-01-02"),
			row.ExperienceDays,
			row.Skills,
		}
		if err := f.SetSheetRow(EmployeeSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
