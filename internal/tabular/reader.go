// Package tabular reads the rows of uploaded CSV and Excel data files.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader turns a data file into its header and rows
type Reader struct{}

// NewReader creates a Reader
func NewReader() *Reader {
	return &Reader{}
}

// Read returns the columns in file order and one field map per non-blank row.
// Duplicate column names are kept in columns; the first occurrence supplies the row value.
func (r *Reader) Read(path string, fileType models.FileType) ([]string, []map[string]string, error) {
	var (
		records [][]string
		err     error
	)
	switch fileType {
	case models.FileTypeCSV:
		records, err = readCSV(path)
	case models.FileTypeXLSX:
		records, err = readXLSX(path)
	default:
		return nil, nil, errs.Validation("unsupported file type %q", fileType)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errs.Validation("data file %s has no header row", path)
	}

	columns := headerColumns(records[0])
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, rowFields(columns, record))
	}
	return columns, rows, nil
}

// Preview returns at most n rows
func Preview(rows []map[string]string, n int) []map[string]string {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Validation("malformed csv: %v", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.Validation("unreadable excel file: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errs.Validation("excel file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func headerColumns(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		columns[i] = name
	}
	return columns
}

func rowFields(columns, record []string) map[string]string {
	fields := make(map[string]string, len(columns))
	for i, col := range columns {
		if _, seen := fields[col]; seen {
			continue
		}
		value := ""
		if i < len(record) {
			value = strings.TrimSpace(record[i])
		}
		fields[col] = value
	}
	return fields
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
