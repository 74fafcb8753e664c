package dataset

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/viant/botmodel/dialog"
	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of an Excel workbook. The first row is the
// header; rows starting with '#' and fully blank rows are skipped.
func ParseXLSX(data []byte) ([]dialog.Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return sheetRecords(rows), nil
}

// ParseXLS reads the first sheet of a legacy BIFF workbook.
func ParseXLS(data []byte) ([]dialog.Record, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.GetNumberSheets() == 0 {
		return nil, nil
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("read xls sheet: %w", err)
	}
	if sheet == nil {
		return nil, nil
	}
	var rows [][]string
	for _, row := range sheet.GetRows() {
		rows = append(rows, cellValues(row.GetCols()))
	}
	return sheetRecords(rows), nil
}

func sheetRecords(rows [][]string) []dialog.Record {
	start := -1
	for i, row := range rows {
		if !skipRow(row) {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}
	header := rows[start]
	var records []dialog.Record
	for _, row := range rows[start+1:] {
		if skipRow(row) {
			continue
		}
		records = append(records, newRecord(header, row, true))
	}
	return records
}

func skipRow(row []string) bool {
	if len(row) > 0 && strings.HasPrefix(row[0], "#") {
		return true
	}
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// cellValues renders a row of BIFF cells. Numeric cells, zero included,
// are formatted by the cell itself.
func cellValues(cols []structure.CellData) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, col.GetString())
	}
	return out
}
