package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/viant/botmodel/dialog"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV parses a comma separated dataset with a mandatory header row.
// Lines starting with '#' are comments and blank lines are skipped. Rows
// shorter than the header leave the missing columns absent; extra fields
// are ignored.
func ParseCSV(data []byte) ([]dialog.Record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ','
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var records []dialog.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		records = append(records, newRecord(header, row, false))
	}
	return records, nil
}

// newRecord maps a row onto header columns. With pad set, columns missing at
// the end of the row are treated as empty cells rather than absent fields.
func newRecord(header, row []string, pad bool) dialog.Record {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		switch {
		case i < len(row):
			fields[name] = row[i]
		case pad:
			fields[name] = ""
		}
	}
	return dialog.NewRecord(fields)
}
