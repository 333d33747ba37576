package utils

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	headerFillColor = "366092"
	maxColumnWidth  = 50
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TabularError is a file-level failure that aborts an import before any row
// is processed
type TabularError struct {
	Code    string
	Message string
}

func (e *TabularError) Error() string {
	return e.Message
}

// Row is one data row keyed by normalized header name
type Row struct {
	Number int
	values map[string]string
}

// Get returns the first non-blank value among the given header names
func (r Row) Get(names ...string) string {
	for _, name := range names {
		if v := r.values[NormalizeHeader(name)]; v != "" {
			return v
		}
	}
	return ""
}

// Table is a decoded upload: its header line and data rows
type Table struct {
	Headers []string
	Rows    []Row
}

// Sheet is one tabular output: a named sheet in XLSX or the whole CSV file
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// NormalizeHeader lowercases a header and drops everything that is not a
// letter or digit, so "Stock Quantity", "stock_quantity" and "STOCKQUANTITY"
// all match.
func NormalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReadTable decodes a .csv or .xlsx upload. Rows are numbered from 1,
// excluding the header; blank rows are skipped but still counted.
func ReadTable(filename string, data []byte) (*Table, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx":
		records, err = readXLSX(data)
	case ".xls":
		return nil, &TabularError{Code: "UNSUPPORTED_FORMAT", Message: "Legacy .xls files are not supported. Please save the file as .xlsx or CSV."}
	default:
		return nil, &TabularError{Code: "INVALID_FILE_FORMAT", Message: "Invalid file format. Please upload CSV or Excel (.xlsx) file."}
	}
	if err != nil {
		return nil, &TabularError{Code: "UNREADABLE_FILE", Message: fmt.Sprintf("Error reading file: %v", err)}
	}
	if len(records) == 0 {
		return nil, &TabularError{Code: "EMPTY_FILE", Message: "The file is empty"}
	}

	table := &Table{Headers: make([]string, len(records[0]))}
	keys := make([]string, len(records[0]))
	for i, h := range records[0] {
		table.Headers[i] = strings.TrimSpace(h)
		keys[i] = NormalizeHeader(h)
	}

	for i, record := range records[1:] {
		row := Row{Number: i + 1, values: make(map[string]string, len(keys))}
		blank := true
		for col, key := range keys {
			if key == "" || col >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[col])
			if v != "" {
				blank = false
			}
			if _, seen := row.values[key]; !seen {
				row.values[key] = v
			}
		}
		if !blank {
			table.Rows = append(table.Rows, row)
		}
	}
	return table, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

// WriteCSV encodes one sheet as CSV
func WriteCSV(w io.Writer, sheet Sheet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(sheet.Headers); err != nil {
		return err
	}
	if err := writer.WriteAll(sheet.Rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX encodes sheets as a workbook. Header rows are bold on a blue
// fill and each column is sized to its longest value, capped at 50.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFillColor}},
	})
	if err != nil {
		return err
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetList()[0], sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	if len(sheet.Headers) == 0 {
		return nil
	}
	widths := make([]int, len(sheet.Headers))

	if err := setRow(f, sheet.Name, 1, sheet.Headers, widths); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		if err := setRow(f, sheet.Name, i+2, row, widths); err != nil {
			return err
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet.Name, col, col, float64(min(width+2, maxColumnWidth))); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string, widths []int) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
		if i < len(widths) && utf8.RuneCountInString(v) > widths[i] {
			widths[i] = utf8.RuneCountInString(v)
		}
	}
	return f.SetSheetRow(sheet, cell, &row)
}
