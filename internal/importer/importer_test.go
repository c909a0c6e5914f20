package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/task-distribution/internal/domain"
)

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"contacts.csv", FormatCSV, false},
		{"Contacts.XLSX", FormatXLSX, false},
		{"legacy.xls", "", true},
		{"notes.txt", "", true},
		{"noextension", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromFilename(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffFirstName,Phone,Notes,Extra\n" +
		"Ana, 555-0101 ,call after 5,x\n" +
		"Ben,555-0102,\n" +
		",,,\n" +
		"Cleo,555-0103,\"likes, commas\"\n"

	records, err := Parse(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	require.Equal(t, []domain.TaskRecord{
		{FirstName: "Ana", Phone: "555-0101", Notes: "call after 5"},
		{FirstName: "Ben", Phone: "555-0102", Notes: ""},
		{FirstName: "Cleo", Phone: "555-0103", Notes: "likes, commas"},
	}, records)
}

func TestParseCSV_HeaderIsCaseSensitive(t *testing.T) {
	records, err := Parse(strings.NewReader("firstname,phone,notes\nAna,1,x\n"), FormatCSV)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.False(t, records[0].Valid())
}

func TestParseCSV_ColumnOrderIrrelevant(t *testing.T) {
	records, err := Parse(strings.NewReader("Notes,FirstName,Phone\nhello,Ana,42\n"), FormatCSV)
	require.NoError(t, err)
	require.Equal(t, []domain.TaskRecord{{FirstName: "Ana", Phone: "42", Notes: "hello"}}, records)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"FirstName", "Phone", "Notes"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Ana", 5550101, "first"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Ben", "555-0102"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	records, err := Parse(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, domain.TaskRecord{FirstName: "Ana", Phone: "5550101", Notes: "first"}, records[0])
	require.False(t, records[1].Valid())
}

func TestParseSpreadsheet_Garbage(t *testing.T) {
	_, err := Parse(strings.NewReader("definitely not a workbook"), FormatXLSX)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFile_LegacyWorkbookRejected(t *testing.T) {
	path := filepath.Join("testdata", "legacy.xls")

	_, err := ParseFile(path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	// The compound-document container is not something excelize can open
	// even when handed over as xlsx.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, data[:8])
	_, err = Parse(bytes.NewReader(data), FormatXLSX)
	require.Error(t, err)
}

func TestParseFile_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("FirstName,Phone,Notes\n"), 0o600))

	records, err := ParseFile(path)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestStager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	stager, err := NewStager(dir)
	require.NoError(t, err)

	first := stager.Path("../../etc/contacts.csv")
	second := stager.Path("../../etc/contacts.csv")
	require.NotEqual(t, first, second)
	require.Equal(t, dir, filepath.Dir(first))
	require.True(t, strings.HasSuffix(first, "-contacts.csv"))

	require.NoError(t, os.WriteFile(first, []byte("x"), 0o600))
	require.NoError(t, stager.Remove(first))
	_, err = os.Stat(first)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, stager.Remove(first), "removing twice is fine")
}
