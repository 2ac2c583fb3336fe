package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Read loads a table from path, dispatching on the file extension.
// Supported: .csv, .xlsx.
func Read(path string) (*Table, error) {
	switch ext(path) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, eris.Errorf("tabular: unsupported input format %q", ext(path))
	}
}

// Write persists a table to path, dispatching on the file extension.
// Supported: .csv, .xlsx.
func Write(t *Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "tabular: create output dir")
	}
	switch ext(path) {
	case ".csv":
		return writeCSV(t, path)
	case ".xlsx":
		return writeXLSX(t, path)
	default:
		return eris.Errorf("tabular: unsupported output format %q", ext(path))
	}
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read csv")
	}
	if len(records) == 0 {
		return nil, eris.Errorf("tabular: %s has no header row", path)
	}

	t := NewTable(records[0])
	for _, row := range records[1:] {
		t.AppendRow(row)
	}
	return t, nil
}

func writeCSV(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "tabular: create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return eris.Wrap(err, "tabular: write csv header")
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "tabular: write csv row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "tabular: flush csv")
}

func readXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("tabular: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	var t *Table
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			t = NewTable(cells)
			continue
		}
		t.AppendRow(cells)
	}
	if t == nil {
		return nil, eris.Errorf("tabular: %s has no header row", path)
	}
	return t, nil
}

func writeXLSX(t *Table, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	if err != nil {
		return eris.Wrap(err, "tabular: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range t.Columns {
		header.AddCell().SetString(col)
	}
	for _, row := range t.Rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}

	return eris.Wrap(f.Save(path), "tabular: save xlsx")
}
