package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"tabelbot/internal/storage"
)

const sheetName = "Журнал"

// Column order is fixed: full name, action, location, date, time.
var xlsxHeader = []string{"ФИО", "Действие", "Место", "Дата", "Время"}

// WriteXLSX renders records into a styled spreadsheet under dir and
// returns the full path. Rows are grouped by action (departed first),
// each group color-coded; within a group rows run oldest first.
func WriteXLSX(records []storage.Record, dir string, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", ErrNoData
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return "", err
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", err
	}
	departedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return "", err
	}
	arrivedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	})
	if err != nil {
		return "", err
	}

	for col, title := range xlsxHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, title)
	}
	_ = f.SetCellStyle(sheetName, "A1", "E1", headerStyle)
	_ = f.SetColWidth(sheetName, "A", "A", 28)
	_ = f.SetColWidth(sheetName, "B", "C", 16)
	_ = f.SetColWidth(sheetName, "D", "E", 12)

	asc := sortAscending(records)
	row := 2
	for _, action := range []storage.Action{storage.ActionDeparted, storage.ActionArrived} {
		style := departedStyle
		if action == storage.ActionArrived {
			style = arrivedStyle
		}
		for _, rec := range asc {
			if rec.Action != action {
				continue
			}
			cells := []any{
				rec.FullName,
				ActionLabel(rec.Action),
				NormalizeLocation(rec.Location),
				rec.Timestamp.Format(dateLayout),
				rec.Timestamp.Format(timeLayout),
			}
			for col, v := range cells {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(sheetName, cell, v)
			}
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(cells), row)
			_ = f.SetCellStyle(sheetName, first, last, style)
			row++
		}
	}

	path := filepath.Join(dir, XLSXName(now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save spreadsheet: %w", err)
	}
	return path, nil
}
