package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, "people.csv", "\xEF\xBB\xBFname,city,Tên\nAnna,Paris,An\nBob,Berlin\n,,\nCara,\"Rome, IT\",Ca\n")

	columns, rows, err := NewReader().Read(path, models.FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city", "Tên"}, columns)
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]string{"name": "Anna", "city": "Paris", "Tên": "An"}, rows[0])
	assert.Equal(t, map[string]string{"name": "Bob", "city": "Berlin", "Tên": ""}, rows[1])
	assert.Equal(t, "Rome, IT", rows[2]["city"])
}

func TestReadCSVDuplicateAndEmptyHeaders(t *testing.T) {
	path := writeFile(t, "dup.csv", "name,,name\nAnna,x,Other\n")

	columns, rows, err := NewReader().Read(path, models.FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "Unnamed: 1", "name"}, columns)
	assert.Equal(t, "Anna", rows[0]["name"])
	assert.Equal(t, "x", rows[0]["Unnamed: 1"])
}

func TestReadCSVEmpty(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	_, _, err := NewReader().Read(path, models.FileTypeCSV)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestReadHeaderOnly(t *testing.T) {
	path := writeFile(t, "header.csv", "name,city\n")
	columns, rows, err := NewReader().Read(path, models.FileTypeCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city"}, columns)
	assert.Empty(t, rows)
}

func TestReadMissingFile(t *testing.T) {
	_, _, err := NewReader().Read(filepath.Join(t.TempDir(), "nope.csv"), models.FileTypeCSV)
	require.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "city"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Anna", "Paris"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Bob"}))
	path := filepath.Join(t.TempDir(), "people.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	columns, rows, err := NewReader().Read(path, models.FileTypeXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city"}, columns)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"name": "Anna", "city": "Paris"}, rows[0])
	assert.Equal(t, map[string]string{"name": "Bob", "city": ""}, rows[1])
}

func TestReadXLSXCorrupt(t *testing.T) {
	path := writeFile(t, "bad.xlsx", "not a zip")
	_, _, err := NewReader().Read(path, models.FileTypeXLSX)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestReadUnsupportedType(t *testing.T) {
	_, _, err := NewReader().Read("x.txt", models.FileType("txt"))
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestPreview(t *testing.T) {
	rows := make([]map[string]string, 8)
	assert.Len(t, Preview(rows, 5), 5)
	assert.Len(t, Preview(rows[:2], 5), 2)
}
