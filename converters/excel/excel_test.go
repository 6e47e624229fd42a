package excel

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/darianmavgo/sqldump2xlsx/converters"
	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

func TestExcelWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.xlsx")

	w, err := NewExcelWriter(path, "customers", []string{"id", "name", "seen"}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append([]any{"1", "Ann", "2024-01-02 03:04:05"}))
	require.NoError(t, w.Append([]any{"2", nil, "soon"}))
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"customers"}, f.GetSheetList())

	rows, err := f.GetRows("customers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "seen"}, rows[0])
	assert.Equal(t, "Ann", rows[1][1])
	assert.Equal(t, []string{"2", "", "soon"}, rows[2])

	headerStyle, err := f.GetCellStyle("customers", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(headerStyle)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	dateStyle, err := f.GetCellStyle("customers", "C2")
	require.NoError(t, err)
	style, err = f.GetStyle(dateStyle)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Equal(t, DateTimeFormat, *style.CustomNumFmt)
}

func TestExcelWriterTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.xlsx")

	w, err := NewExcelWriter(path, "t", []string{"a"}, &common.WriterConfig{MaxFieldSize: 4})
	require.NoError(t, err)
	require.NoError(t, w.Append([]any{"abcdefgh"}))
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("t", "A2")
	require.NoError(t, err)
	assert.Equal(t, "abcd", v)
}

func TestExcelWriterRegistered(t *testing.T) {
	driver, err := converters.LookupWriter("xlsx")
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", driver.Extension())
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02 03:04", time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC), true},
		{"2024-01-02T03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02 03:04:05.5", time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC), true},
		{"2024-01-02", time.Time{}, false},
		{"12345678901234567", time.Time{}, false},
		{"not a date at all", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDateTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"orders", "orders"},
		{"a/b:c", "a_b_c"},
		{"[x]", "_x_"},
		{"'quoted'", "quoted"},
		{"", "Sheet1"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SheetName(tt.in))
		})
	}
}
